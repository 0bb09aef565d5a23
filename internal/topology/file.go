// Package topology reads a network from a YAML file. It backs the router
// when no database is configured.
package topology

import (
	"context"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"metro-router/internal/transit"
)

type fileStop struct {
	ID          int64    `yaml:"id" validate:"required,gt=0"`
	Name        string   `yaml:"name" validate:"required"`
	Code        string   `yaml:"code" validate:"required"`
	Interchange bool     `yaml:"interchange"`
	Latitude    *float64 `yaml:"latitude" validate:"omitempty,latitude"`
	Longitude   *float64 `yaml:"longitude" validate:"omitempty,longitude"`
}

type fileRoute struct {
	ID    int64    `yaml:"id" validate:"required,gt=0"`
	Name  string   `yaml:"name" validate:"required"`
	Color string   `yaml:"color"`
	Stops []string `yaml:"stops" validate:"dive,required"`
}

// File is the on-disk layout. Routes list their stops by code, in line order.
type File struct {
	Stops  []fileStop  `yaml:"stops" validate:"dive"`
	Routes []fileRoute `yaml:"routes" validate:"dive"`
}

// FileSource re-reads its file on every fetch, so an invalidated cache picks
// up edits without a restart.
type FileSource struct {
	path     string
	validate *validator.Validate
}

func NewFileSource(path string) *FileSource {
	return &FileSource{path: path, validate: validator.New()}
}

func (s *FileSource) FetchRoutes(ctx context.Context) ([]transit.Route, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, err
	}
	return Parse(data, s.validate)
}

// Parse decodes and validates a topology document and resolves stop codes.
func Parse(data []byte, v *validator.Validate) ([]transit.Route, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode topology: %w", err)
	}
	if v == nil {
		v = validator.New()
	}
	if err := v.Struct(f); err != nil {
		return nil, fmt.Errorf("invalid topology: %w", err)
	}

	byCode := make(map[string]transit.Stop, len(f.Stops))
	ids := make(map[int64]bool, len(f.Stops))
	for _, fs := range f.Stops {
		if _, dup := byCode[fs.Code]; dup {
			return nil, fmt.Errorf("invalid topology: duplicate stop code %q", fs.Code)
		}
		if ids[fs.ID] {
			return nil, fmt.Errorf("invalid topology: duplicate stop id %d", fs.ID)
		}
		ids[fs.ID] = true
		byCode[fs.Code] = transit.Stop{
			ID:          transit.StopID(fs.ID),
			Name:        fs.Name,
			Code:        fs.Code,
			Interchange: fs.Interchange,
			Latitude:    fs.Latitude,
			Longitude:   fs.Longitude,
		}
	}

	routes := make([]transit.Route, 0, len(f.Routes))
	for _, fr := range f.Routes {
		r := transit.Route{ID: transit.RouteID(fr.ID), Name: fr.Name, Color: fr.Color}
		for _, code := range fr.Stops {
			st, ok := byCode[code]
			if !ok {
				return nil, fmt.Errorf("invalid topology: route %q references unknown stop %q", fr.Name, code)
			}
			r.Stops = append(r.Stops, st)
		}
		routes = append(routes, r)
	}
	return routes, nil
}
