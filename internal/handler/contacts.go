package handler

import (
	"net/http"

	"github.com/mmeshcher/procurement/internal/model"
)

type contactRequest struct {
	City      string `json:"city"`
	Street    string `json:"street"`
	House     string `json:"house"`
	Structure string `json:"structure"`
	Building  string `json:"building"`
	Apartment string `json:"apartment"`
	Phone     string `json:"phone"`
}

func (req contactRequest) toModel(userID, id int64) model.Contact {
	return model.Contact{
		ID:        id,
		UserID:    userID,
		City:      req.City,
		Street:    req.Street,
		House:     req.House,
		Structure: req.Structure,
		Building:  req.Building,
		Apartment: req.Apartment,
		Phone:     req.Phone,
	}
}

// ListContacts возвращает контакты текущего пользователя.
func (h *Handler) ListContacts(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	contacts, err := h.service.ListContacts(r.Context(), userID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(contacts))
}

// CreateContact создаёт контакт текущего пользователя.
func (h *Handler) CreateContact(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req contactRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	c, err := h.service.CreateContact(r.Context(), req.toModel(userID, 0))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

// UpdateContact изменяет контакт текущего пользователя.
func (h *Handler) UpdateContact(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req contactRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	c, err := h.service.UpdateContact(r.Context(), req.toModel(userID, id))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// DeleteContact удаляет контакт текущего пользователя.
func (h *Handler) DeleteContact(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	msg, err := h.service.DeleteContact(r.Context(), userID, id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeMessage(w, msg)
}
