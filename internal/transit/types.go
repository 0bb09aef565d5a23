package transit

type StopID int64

type RouteID int64

type Stop struct {
	ID          StopID   `json:"id" yaml:"id"`
	Name        string   `json:"name" yaml:"name"`
	Code        string   `json:"code" yaml:"code"`
	Interchange bool     `json:"interchange" yaml:"interchange"`
	Latitude    *float64 `json:"latitude,omitempty" yaml:"latitude,omitempty"`
	Longitude   *float64 `json:"longitude,omitempty" yaml:"longitude,omitempty"`
}

// Route is a named line. Stops are in line order; consecutive entries are adjacent.
type Route struct {
	ID    RouteID `json:"id" yaml:"id"`
	Name  string  `json:"name" yaml:"name"`
	Color string  `json:"color" yaml:"color"`
	Stops []Stop  `json:"stops" yaml:"stops"`
}

// StopIDs returns the route's stop ids in line order.
func (r Route) StopIDs() []StopID {
	ids := make([]StopID, len(r.Stops))
	for i, s := range r.Stops {
		ids[i] = s.ID
	}
	return ids
}
