package api

import (
	"net/http"

	"github.com/julienschmidt/httprouter"

	"metro-router/internal/booking"
	"metro-router/internal/transit"
)

func (s *Server) pathHandler(w http.ResponseWriter, r *http.Request) {
	from, err := queryID(r, "from")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	to, err := queryID(r, "to")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	res, err := s.Planner.Plan(r.Context(), transit.StopID(from), transit.StopID(to))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type stopRequest struct {
	Name        string   `json:"name" validate:"required,max=200"`
	Code        string   `json:"code" validate:"required,max=20"`
	Interchange bool     `json:"interchange"`
	Latitude    *float64 `json:"latitude" validate:"omitempty,latitude"`
	Longitude   *float64 `json:"longitude" validate:"omitempty,longitude"`
}

func (req stopRequest) stop(id transit.StopID) transit.Stop {
	return transit.Stop{
		ID:          id,
		Name:        req.Name,
		Code:        req.Code,
		Interchange: req.Interchange,
		Latitude:    req.Latitude,
		Longitude:   req.Longitude,
	}
}

func (s *Server) listStopsHandler(w http.ResponseWriter, r *http.Request) {
	stops, err := s.Store.ListStops(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if stops == nil {
		stops = []transit.Stop{}
	}
	writeJSON(w, http.StatusOK, stops)
}

func (s *Server) getStopHandler(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	st, err := s.Store.GetStop(r.Context(), transit.StopID(id))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) createStopHandler(w http.ResponseWriter, r *http.Request) {
	var req stopRequest
	if err := s.decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	st, err := s.Store.CreateStop(r.Context(), req.stop(0))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.topologyChanged("stop_created", int64(st.ID))
	writeJSON(w, http.StatusCreated, st)
}

func (s *Server) updateStopHandler(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var req stopRequest
	if err := s.decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	st, err := s.Store.UpdateStop(r.Context(), req.stop(transit.StopID(id)))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.topologyChanged("stop_updated", id)
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) deleteStopHandler(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.Store.DeleteStop(r.Context(), transit.StopID(id)); err != nil {
		s.fail(w, r, err)
		return
	}
	s.topologyChanged("stop_deleted", id)
	w.WriteHeader(http.StatusNoContent)
}

type routeRequest struct {
	Name    string  `json:"name" validate:"required,max=100"`
	Color   string  `json:"color" validate:"omitempty,hexcolor"`
	StopIDs []int64 `json:"stopIds" validate:"required,min=1,dive,gt=0"`
}

func (s *Server) listRoutesHandler(w http.ResponseWriter, r *http.Request) {
	routes, err := s.Store.FetchRoutes(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if routes == nil {
		routes = []transit.Route{}
	}
	writeJSON(w, http.StatusOK, routes)
}

func (s *Server) getRouteHandler(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	route, err := s.Store.GetRoute(r.Context(), transit.RouteID(id))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, route)
}

func (s *Server) createRouteHandler(w http.ResponseWriter, r *http.Request) {
	var req routeRequest
	if err := s.decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	ids := make([]transit.StopID, len(req.StopIDs))
	for i, id := range req.StopIDs {
		ids[i] = transit.StopID(id)
	}
	route, err := s.Store.CreateRoute(r.Context(), req.Name, req.Color, ids)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.topologyChanged("route_created", int64(route.ID))
	writeJSON(w, http.StatusCreated, route)
}

func (s *Server) deleteRouteHandler(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.Store.DeleteRoute(r.Context(), transit.RouteID(id)); err != nil {
		s.fail(w, r, err)
		return
	}
	s.topologyChanged("route_deleted", id)
	w.WriteHeader(http.StatusNoContent)
}

type bookingRequest struct {
	Rider             string `json:"rider" validate:"required,max=100"`
	SourceStopID      int64  `json:"sourceStopId" validate:"required,gt=0"`
	DestinationStopID int64  `json:"destinationStopId" validate:"required,gt=0"`
}

func (s *Server) createBookingHandler(w http.ResponseWriter, r *http.Request) {
	var req bookingRequest
	if err := s.decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	b, err := s.Bookings.Create(r.Context(), req.Rider,
		transit.StopID(req.SourceStopID), transit.StopID(req.DestinationStopID))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

func (s *Server) getBookingHandler(w http.ResponseWriter, r *http.Request) {
	ref := httprouter.ParamsFromContext(r.Context()).ByName("reference")
	b, err := s.Bookings.Get(r.Context(), ref)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) riderBookingsHandler(w http.ResponseWriter, r *http.Request) {
	rider := httprouter.ParamsFromContext(r.Context()).ByName("rider")
	list, err := s.Bookings.ListForRider(r.Context(), rider)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if list == nil {
		list = []booking.Booking{}
	}
	writeJSON(w, http.StatusOK, list)
}
