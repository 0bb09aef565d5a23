package topology

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"metro-router/internal/transit"
)

const sample = `
stops:
  - {id: 1, name: Indiranagar, code: IND}
  - {id: 2, name: MG Road, code: MGR, latitude: 12.9755, longitude: 77.6068}
  - {id: 3, name: Majestic, code: MAJ, interchange: true}
  - {id: 4, name: Jayanagar, code: JAY}
routes:
  - id: 1
    name: Purple
    color: "#800080"
    stops: [IND, MGR, MAJ]
  - id: 2
    name: Green
    color: "#008000"
    stops: [MAJ, JAY]
`

func TestParse(t *testing.T) {
	routes, err := Parse([]byte(sample), nil)
	require.NoError(t, err)
	require.Len(t, routes, 2)

	purple := routes[0]
	assert.Equal(t, "Purple", purple.Name)
	assert.Equal(t, []transit.StopID{1, 2, 3}, purple.StopIDs())
	require.NotNil(t, purple.Stops[1].Latitude)
	assert.InDelta(t, 12.9755, *purple.Stops[1].Latitude, 1e-9)
	assert.Nil(t, purple.Stops[0].Latitude)

	green := routes[1]
	assert.Equal(t, []transit.StopID{3, 4}, green.StopIDs())
	assert.True(t, green.Stops[0].Interchange)
}

func TestParseRejects(t *testing.T) {
	cases := map[string]string{
		"unknown stop code": `
stops: [{id: 1, name: A, code: A}]
routes: [{id: 1, name: R, stops: [A, B]}]`,
		"duplicate code": `
stops: [{id: 1, name: A, code: A}, {id: 2, name: B, code: A}]`,
		"duplicate id": `
stops: [{id: 1, name: A, code: A}, {id: 1, name: B, code: B}]`,
		"missing name": `
stops: [{id: 1, code: A}]`,
		"bad latitude": `
stops: [{id: 1, name: A, code: A, latitude: 123}]`,
		"not yaml": `stops: [`,
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc), nil)
			assert.Error(t, err)
		})
	}
}

func TestFileSourceRereads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "network.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o600))

	src := NewFileSource(path)
	routes, err := src.FetchRoutes(context.Background())
	require.NoError(t, err)
	assert.Len(t, routes, 2)

	require.NoError(t, os.WriteFile(path, []byte(`
stops: [{id: 1, name: A, code: A}, {id: 2, name: B, code: B}]
routes: [{id: 9, name: Solo, stops: [A, B]}]`), 0o600))
	routes, err = src.FetchRoutes(context.Background())
	require.NoError(t, err)
	require.Len(t, routes, 1)
	assert.Equal(t, transit.RouteID(9), routes[0].ID)
}

func TestFileSourceMissingFile(t *testing.T) {
	src := NewFileSource(filepath.Join(t.TempDir(), "absent.yaml"))
	_, err := src.FetchRoutes(context.Background())
	assert.ErrorIs(t, err, os.ErrNotExist)
}
