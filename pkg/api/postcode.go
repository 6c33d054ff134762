package api

import (
	"github.com/google/uuid"

	"github.com/nimburion/geodir/pkg/controller"
	"github.com/nimburion/geodir/pkg/repository"
	"github.com/nimburion/geodir/pkg/server/router"
)

type postCodeRequest struct {
	CityID uuid.UUID `json:"city_id" validate:"required"`
	Code   string    `json:"code"`
}

func (h *Handler) listPostCodes(c router.Context) error {
	return list(h, c, h.postCodes.List)
}

func (h *Handler) getPostCode(c router.Context) error {
	return get(h, c, h.postCodes.FindByID)
}

func (h *Handler) createPostCode(c router.Context) error {
	var req postCodeRequest
	if err := bind(c, &req); err != nil {
		return h.fail(c, err)
	}
	postCode := repository.PostCode{CityID: req.CityID, Code: req.Code}
	if err := h.postCodes.Create(c.Request().Context(), &postCode); err != nil {
		return h.fail(c, err)
	}
	return controller.Created(c, postCode)
}

func (h *Handler) updatePostCode(c router.Context) error {
	id, err := pathID(c)
	if err != nil {
		return h.fail(c, err)
	}
	var req postCodeRequest
	if err := bind(c, &req); err != nil {
		return h.fail(c, err)
	}
	postCode := repository.PostCode{ID: id, CityID: req.CityID, Code: req.Code}
	if err := h.postCodes.Update(c.Request().Context(), &postCode); err != nil {
		return h.fail(c, err)
	}
	return controller.Success(c, postCode)
}

func (h *Handler) deletePostCode(c router.Context) error {
	return remove(h, c, h.postCodes.Delete)
}

func (h *Handler) listPostCodeStreets(c router.Context) error {
	return listChildren(h, c, h.streets.ListByPostCode)
}
