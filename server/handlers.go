package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"roomchat/auth"
	"roomchat/domain"
	"roomchat/errors"
	"strconv"
)

const maxBodyBytes = 1 << 20

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

func (s *Server) signup(w http.ResponseWriter, r *http.Request) {
	s.register(w, r, s.accounts.Signup)
}

func (s *Server) adminSignup(w http.ResponseWriter, r *http.Request) {
	s.register(w, r, s.accounts.AdminSignup)
}

func (s *Server) register(w http.ResponseWriter, r *http.Request, create func(auth.SignupRequest) (domain.User, error)) {
	var body auth.SignupRequest
	if err := decode(w, r, &body); err != nil {
		s.fail(w, err)
		return
	}
	user, err := create(body)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// login takes form fields username and password.
func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		s.fail(w, fmt.Errorf("%w: %v", errors.ErrMalformedInput, err))
		return
	}
	token, err := s.accounts.Login(r.PostForm.Get("username"), r.PostForm.Get("password"))
	if err != nil {
		if errors.Is(err, errors.ErrInvalidCredentials) {
			w.Header().Set("WWW-Authenticate", "Bearer")
		}
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{AccessToken: token.String(), TokenType: "bearer"})
}

func (s *Server) createRoom(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFrom(r.Context())
	var draft domain.RoomDraft
	if err := decode(w, r, &draft); err != nil {
		s.fail(w, err)
		return
	}
	room, err := s.rooms.Create(draft, user)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, room)
}

func (s *Server) listRooms(w http.ResponseWriter, r *http.Request) {
	skip, limit, err := pageParams(r)
	if err != nil {
		s.fail(w, err)
		return
	}
	rooms, err := s.rooms.List(skip, limit)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(rooms))
}

func (s *Server) updateRoom(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "room_id")
	if err != nil {
		s.fail(w, err)
		return
	}
	var draft domain.RoomDraft
	if err = decode(w, r, &draft); err != nil {
		s.fail(w, err)
		return
	}
	room, err := s.rooms.Update(domain.RoomID(id), draft)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, room)
}

func (s *Server) deleteRoom(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "room_id")
	if err != nil {
		s.fail(w, err)
		return
	}
	if err = s.rooms.Delete(domain.RoomID(id)); err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"detail": "Room deleted"})
}

func (s *Server) listMembers(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "room_id")
	if err != nil {
		s.fail(w, err)
		return
	}
	members, err := s.rooms.Members(domain.RoomID(id))
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(members))
}

func (s *Server) listUsers(w http.ResponseWriter, r *http.Request) {
	skip, limit, err := pageParams(r)
	if err != nil {
		s.fail(w, err)
		return
	}
	users, err := s.admin.ListUsers(skip, limit)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(users))
}

func (s *Server) promote(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "user_id")
	if err != nil {
		s.fail(w, err)
		return
	}
	user, err := s.admin.Promote(domain.UserID(id))
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrMalformedInput, err)
	}
	return nil
}

func pathID(r *http.Request, name string) (int, error) {
	id, err := strconv.Atoi(r.PathValue(name))
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", errors.ErrValidation, name)
	}
	return id, nil
}

func pageParams(r *http.Request) (int, int, error) {
	q := r.URL.Query()
	skip, limit := 0, 0
	var err error
	if v := q.Get("skip"); v != "" {
		if skip, err = strconv.Atoi(v); err != nil {
			return 0, 0, fmt.Errorf("%w: skip must be an integer", errors.ErrValidation)
		}
	}
	if v := q.Get("limit"); v != "" {
		if limit, err = strconv.Atoi(v); err != nil {
			return 0, 0, fmt.Errorf("%w: limit must be an integer", errors.ErrValidation)
		}
	}
	return skip, limit, nil
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
