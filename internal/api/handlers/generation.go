package handlers

import (
	"encoding/json"
	"net/http"
	"sort"
	"strconv"

	"github.com/Conceptual-Machines/midigen-api/internal/apperr"
	"github.com/Conceptual-Machines/midigen-api/internal/logger"
	"github.com/Conceptual-Machines/midigen-api/internal/middleware"
	"github.com/Conceptual-Machines/midigen-api/internal/music"
	"github.com/Conceptual-Machines/midigen-api/internal/services"
	"github.com/gin-gonic/gin"
)

type GenerationHandler struct {
	genService *services.GenerationService
}

func NewGenerationHandler(genService *services.GenerationService) *GenerationHandler {
	return &GenerationHandler{genService: genService}
}

type GenerateRequest struct {
	SongName   string `json:"songName"`
	Extra      string `json:"extra"`
	Instrument string `json:"instrument"`
}

type GenerateResponse struct {
	Success    bool         `json:"success"`
	Notes      []music.Note `json:"notes"`
	Message    string       `json:"message"`
	Instrument string       `json:"instrument"`
	Dropped    int          `json:"dropped"`
	Fallback   bool         `json:"fallback"`
}

type EncodeRequest struct {
	Notes      []music.Note `json:"notes" binding:"required"`
	Instrument string       `json:"instrument"`
}

type UpdateRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

type DeleteRequest struct {
	UserID string `json:"userId"`
}

type BatchDeleteRequest struct {
	IDs    []string `json:"ids" binding:"required"`
	UserID string   `json:"userId"`
}

// callerID returns the token subject. A userId in the request that names
// someone else is rejected.
func callerID(c *gin.Context, claimed string) (string, error) {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return "", apperr.New(apperr.Unauthorized, "authentication required")
	}
	if claimed != "" && claimed != userID {
		return "", apperr.New(apperr.Unauthorized, "userId does not match the authenticated user")
	}
	return userID, nil
}

// Instruments lists the instrument names the encoder maps to GM programs
func (h *GenerationHandler) Instruments(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"instruments": music.Instruments(),
		"default":     music.DefaultInstrument,
	})
}

func (h *GenerationHandler) Generate(c *gin.Context) {
	var req GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	result, err := h.genService.Generate(c.Request.Context(), services.GenerateInput{
		SongName:   req.SongName,
		Extra:      req.Extra,
		Instrument: req.Instrument,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	message := msgGenerated
	if result.Fallback {
		message = msgGeneratedFallback
	}
	c.JSON(http.StatusOK, GenerateResponse{
		Success:    true,
		Notes:      result.Notes,
		Message:    message,
		Instrument: result.Instrument,
		Dropped:    result.Dropped,
		Fallback:   result.Fallback,
	})
}

// Encode renders a note list to a .mid file without saving it
func (h *GenerationHandler) Encode(c *gin.Context) {
	var req EncodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	data, result, err := h.genService.EncodeNotes(c.Request.Context(), req.Notes, req.Instrument)
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("X-Notes-Dropped", strconv.Itoa(result.Dropped))
	c.Header("Content-Disposition", `attachment; filename="music.mid"`)
	c.Data(http.StatusOK, "audio/midi", data)
}

func (h *GenerationHandler) Save(c *gin.Context) {
	var req services.SaveInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	userID, err := callerID(c, req.UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	req.UserID = userID

	record, err := h.genService.Save(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, record)
}

// BatchSave saves each item independently. Items claiming another user are
// reported as failed alongside service failures.
// BatchSave decodes each item on its own, so one malformed item only fails
// that index.
func (h *GenerationHandler) BatchSave(c *gin.Context) {
	var req []json.RawMessage
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	if len(req) > maxBatchSize {
		respondError(c, apperr.Newf(apperr.InvalidInput, "at most %d items per batch", maxBatchSize))
		return
	}

	accepted := make([]services.SaveInput, 0, len(req))
	indexes := make([]int, 0, len(req))
	var rejected []services.BatchError
	for i, raw := range req {
		var item services.SaveInput
		if err := json.Unmarshal(raw, &item); err != nil {
			rejected = append(rejected, services.NewBatchError(i, "",
				apperr.Wrap(apperr.InvalidInput, "item is not a valid save request: "+err.Error(), err)))
			continue
		}
		userID, err := callerID(c, item.UserID)
		if err != nil {
			rejected = append(rejected, services.NewBatchError(i, "", err))
			continue
		}
		item.UserID = userID
		accepted = append(accepted, item)
		indexes = append(indexes, i)
	}

	result := h.genService.BatchSave(c.Request.Context(), accepted)
	for i := range result.Failed {
		result.Failed[i].Index = indexes[result.Failed[i].Index]
	}
	result.Failed = append(result.Failed, rejected...)
	sort.SliceStable(result.Failed, func(i, j int) bool { return result.Failed[i].Index < result.Failed[j].Index })

	logger.Info("Batch save finished", logger.WithContext(c).With(logger.Fields{
		"succeeded": len(result.Succeeded),
		"failed":    len(result.Failed),
	}))
	c.JSON(http.StatusOK, result)
}

func (h *GenerationHandler) Get(c *gin.Context) {
	userID, err := callerID(c, "")
	if err != nil {
		respondError(c, err)
		return
	}
	record, err := h.genService.GetOwned(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, record)
}

func (h *GenerationHandler) Download(c *gin.Context) {
	userID, err := callerID(c, "")
	if err != nil {
		respondError(c, err)
		return
	}
	d, err := h.genService.Download(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+d.FileName+`"`)
	c.Data(http.StatusOK, d.ContentType, d.Data)
}

// Notes decodes the stored file back into a note list
func (h *GenerationHandler) Notes(c *gin.Context) {
	userID, err := callerID(c, "")
	if err != nil {
		respondError(c, err)
		return
	}
	file, err := h.genService.DecodeStored(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"notes":      file.Notes,
		"instrument": file.Instrument,
		"duration":   file.Duration,
		"warnings":   file.Warnings,
	})
}

func (h *GenerationHandler) Update(c *gin.Context) {
	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	userID, err := callerID(c, "")
	if err != nil {
		respondError(c, err)
		return
	}
	record, err := h.genService.UpdateMetadata(c.Request.Context(), c.Param("id"), userID, req.Name, req.Description)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, record)
}

func (h *GenerationHandler) ListByUser(c *gin.Context) {
	userID, err := callerID(c, c.Param("userId"))
	if err != nil {
		respondError(c, err)
		return
	}
	records, err := h.genService.ListByUser(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, records)
}

func (h *GenerationHandler) Delete(c *gin.Context) {
	var req DeleteRequest
	// the body is optional
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, err)
			return
		}
	}
	userID, err := callerID(c, req.UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	if err := h.genService.Delete(c.Request.Context(), c.Param("id"), userID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *GenerationHandler) BatchDelete(c *gin.Context) {
	var req BatchDeleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	if len(req.IDs) > maxBatchSize {
		respondError(c, apperr.Newf(apperr.InvalidInput, "at most %d ids per batch", maxBatchSize))
		return
	}
	userID, err := callerID(c, req.UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.genService.BatchDelete(c.Request.Context(), req.IDs, userID))
}
