package httpserver

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront/internal/domain"
	"storefront/internal/remote"
)

// maxImageBytes caps product image uploads.
const maxImageBytes = 5 << 20

type mutationResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message,omitempty"`
	Data    *domain.Product `json:"data,omitempty"`
}

func toMutationResponse(res remote.Result) mutationResponse {
	return mutationResponse{Success: true, Message: res.Message, Data: res.Product}
}

func (h *handlers) createProduct(c *gin.Context) {
	var in domain.ProductInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, errorBody{Error: "invalid request body", Message: err.Error()})
		return
	}
	sess, _ := sessionFrom(c)
	res, err := h.deps.Products.Create(c.Request.Context(), sess, in)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, toMutationResponse(res))
}

func (h *handlers) updateProduct(c *gin.Context) {
	var in domain.ProductInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, errorBody{Error: "invalid request body", Message: err.Error()})
		return
	}
	sess, _ := sessionFrom(c)
	res, err := h.deps.Products.Update(c.Request.Context(), sess, c.Param("id"), in)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, toMutationResponse(res))
}

func (h *handlers) deleteProduct(c *gin.Context) {
	sess, _ := sessionFrom(c)
	res, err := h.deps.Products.Delete(c.Request.Context(), sess, c.Param("id"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, toMutationResponse(res))
}

func (h *handlers) uploadProductImage(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxImageBytes)
	fh, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, errorBody{Error: "image file required", Message: err.Error()})
		return
	}
	file, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, errorBody{Error: "unreadable image", Message: err.Error()})
		return
	}
	defer file.Close()

	sess, _ := sessionFrom(c)
	url, err := h.deps.Products.UploadImage(c.Request.Context(), sess, fh.Filename, file)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "imageUrl": url})
}
