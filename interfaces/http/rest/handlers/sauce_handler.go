package handlers

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"strings"

	"piiquante/application/commands"
	"piiquante/application/commands/bus"
	"piiquante/application/ports"
	"piiquante/application/queries"
	querybus "piiquante/application/queries/bus"
	"piiquante/application/services"
	"piiquante/domain/core/entities"
	"piiquante/domain/core/valueobjects"
	"piiquante/pkg/common"
	pkgerrors "piiquante/pkg/errors"
	"piiquante/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// multipartMemory is how much of a multipart body is held in memory
const multipartMemory = 8 << 20

// SauceHandler handles sauce-related HTTP requests
type SauceHandler struct {
	commandBus     *bus.CommandBus
	queryBus       *querybus.QueryBus
	blobs          ports.BlobStore
	errorHandler   *pkgerrors.ErrorHandler
	maxUploadBytes int64
	logger         *zap.Logger
}

// NewSauceHandler creates a new sauce handler
func NewSauceHandler(
	commandBus *bus.CommandBus,
	queryBus *querybus.QueryBus,
	blobs ports.BlobStore,
	errorHandler *pkgerrors.ErrorHandler,
	maxUploadBytes int64,
	logger *zap.Logger,
) *SauceHandler {
	return &SauceHandler{
		commandBus:     commandBus,
		queryBus:       queryBus,
		blobs:          blobs,
		errorHandler:   errorHandler,
		maxUploadBytes: maxUploadBytes,
		logger:         logger,
	}
}

// SauceRequest is the sauce description a client sends.
// Owner, counters and voter lists are not part of it; clients that send
// them anyway have them ignored.
type SauceRequest struct {
	Name         *string `json:"name" validate:"omitempty,max=100"`
	Manufacturer *string `json:"manufacturer" validate:"omitempty,max=100"`
	Description  *string `json:"description" validate:"omitempty,max=2000"`
	MainPepper   *string `json:"mainPepper" validate:"omitempty,max=100"`
	Heat         *int    `json:"heat" validate:"omitempty,min=0,max=10"`
}

func (req SauceRequest) patch() entities.SaucePatch {
	return entities.SaucePatch{
		Name:         req.Name,
		Manufacturer: req.Manufacturer,
		Description:  req.Description,
		MainPepper:   req.MainPepper,
		Heat:         req.Heat,
	}
}

// VoteRequest is the body of the like endpoint
type VoteRequest struct {
	Like *int `json:"like" validate:"required"`
}

// ListSauces handles GET /api/sauces
func (h *SauceHandler) ListSauces(w http.ResponseWriter, r *http.Request) {
	result, err := h.queryBus.Ask(r.Context(), queries.ListSaucesQuery{})
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, result)
}

// GetSauce handles GET /api/sauces/{id}
func (h *SauceHandler) GetSauce(w http.ResponseWriter, r *http.Request) {
	id, err := sauceIDParam(r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	result, err := h.queryBus.Ask(r.Context(), queries.GetSauceQuery{SauceID: id.String()})
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, result)
}

// CreateSauce handles POST /api/sauces with a multipart body holding the
// "sauce" JSON string and the "image" file
func (h *SauceHandler) CreateSauce(w http.ResponseWriter, r *http.Request) {
	userID, ok := common.GetUserID(r.Context())
	if !ok {
		h.errorHandler.Handle(w, r, pkgerrors.NewUnauthorizedError(""))
		return
	}

	req, err := h.parseMultipart(w, r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	image, err := h.saveImage(r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	result, err := h.commandBus.Send(r.Context(), commands.CreateSauceCommand{
		UserID:  userID,
		Details: req.patch().ReplaceAll(),
		Image:   image,
	})
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	if sauce, ok := result.(*entities.Sauce); ok {
		w.Header().Set("Location", "/api/sauces/"+sauce.ID().String())
	}
	common.RespondMessage(w, http.StatusCreated, "Sauce saved")
}

// UpdateSauce handles PUT /api/sauces/{id}. A JSON body changes the fields
// it carries; a multipart body with a new image replaces the whole sauce.
func (h *SauceHandler) UpdateSauce(w http.ResponseWriter, r *http.Request) {
	userID, ok := common.GetUserID(r.Context())
	if !ok {
		h.errorHandler.Handle(w, r, pkgerrors.NewUnauthorizedError(""))
		return
	}

	// Checked before anything is written to the blob store
	id, err := sauceIDParam(r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	cmd := commands.UpdateSauceCommand{SauceID: id.String(), UserID: userID}

	if isMultipart(r) {
		req, err := h.parseMultipart(w, r)
		if err != nil {
			h.errorHandler.Handle(w, r, err)
			return
		}
		cmd.Patch = req.patch()

		if r.MultipartForm != nil && len(r.MultipartForm.File["image"]) > 0 {
			if cmd.NewImage, err = h.saveImage(r); err != nil {
				h.errorHandler.Handle(w, r, err)
				return
			}
		}
	} else {
		var req SauceRequest
		if err := h.decodeJSON(w, r, &req); err != nil {
			h.errorHandler.Handle(w, r, err)
			return
		}
		cmd.Patch = req.patch()
	}

	if _, err := h.commandBus.Send(r.Context(), cmd); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	common.RespondMessage(w, http.StatusOK, "Sauce updated")
}

// DeleteSauce handles DELETE /api/sauces/{id}
func (h *SauceHandler) DeleteSauce(w http.ResponseWriter, r *http.Request) {
	userID, ok := common.GetUserID(r.Context())
	if !ok {
		h.errorHandler.Handle(w, r, pkgerrors.NewUnauthorizedError(""))
		return
	}

	id, err := sauceIDParam(r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	if _, err := h.commandBus.Send(r.Context(), commands.DeleteSauceCommand{SauceID: id.String(), UserID: userID}); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	common.RespondMessage(w, http.StatusOK, "Sauce deleted")
}

// VoteSauce handles POST /api/sauces/{id}/like
func (h *SauceHandler) VoteSauce(w http.ResponseWriter, r *http.Request) {
	userID, ok := common.GetUserID(r.Context())
	if !ok {
		h.errorHandler.Handle(w, r, pkgerrors.NewUnauthorizedError(""))
		return
	}

	id, err := sauceIDParam(r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	var req VoteRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	result, err := h.commandBus.Send(r.Context(), commands.VoteSauceCommand{
		SauceID: id.String(),
		UserID:  userID,
		Like:    *req.Like,
	})
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	vote, ok := result.(*services.VoteResult)
	if !ok {
		h.errorHandler.Handle(w, r, pkgerrors.NewInternalError("unexpected vote result"))
		return
	}
	common.RespondJSON(w, http.StatusOK, vote)
}

func (h *SauceHandler) decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return pkgerrors.NewValidationError("Invalid request body").WithCause(err)
	}
	if err := utils.ValidateStruct(dst); err != nil {
		return pkgerrors.NewValidationError(err.Error())
	}
	return nil
}

// parseMultipart reads the form and decodes its "sauce" field
func (h *SauceHandler) parseMultipart(w http.ResponseWriter, r *http.Request) (SauceRequest, error) {
	var req SauceRequest

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return req, pkgerrors.NewValidationError("request body too large").WithCause(err)
		}
		return req, pkgerrors.NewValidationError("Invalid multipart body").WithCause(err)
	}

	raw := r.FormValue("sauce")
	if raw == "" {
		return req, pkgerrors.NewValidationError("sauce is required")
	}
	if err := json.Unmarshal([]byte(raw), &req); err != nil {
		return req, pkgerrors.NewValidationError("sauce must be a JSON object").WithCause(err)
	}
	if err := utils.ValidateStruct(req); err != nil {
		return req, pkgerrors.NewValidationError(err.Error())
	}
	return req, nil
}

// saveImage stores the uploaded "image" file. From here on the lifecycle
// owns the blob and deletes it if the sauce is not stored.
func (h *SauceHandler) saveImage(r *http.Request) (valueobjects.ImageRef, error) {
	file, header, err := r.FormFile("image")
	if err != nil {
		return valueobjects.ImageRef{}, pkgerrors.NewValidationError("image is required")
	}
	defer file.Close()

	ref, err := h.blobs.Save(r.Context(), header.Filename, header.Header.Get("Content-Type"), file)
	if err != nil {
		if pkgerrors.IsAppError(err) {
			return valueobjects.ImageRef{}, err
		}
		return valueobjects.ImageRef{}, pkgerrors.NewStorageError("save image", err)
	}
	return ref, nil
}

func sauceIDParam(r *http.Request) (valueobjects.SauceID, error) {
	id, err := valueobjects.NewSauceIDFromString(chi.URLParam(r, "id"))
	if err != nil {
		return valueobjects.SauceID{}, pkgerrors.NewValidationError("invalid sauce id")
	}
	return id, nil
}

func isMultipart(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && strings.HasPrefix(mediaType, "multipart/")
}
