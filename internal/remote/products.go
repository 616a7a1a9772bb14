package remote

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"

	"storefront/internal/domain"
)

// ProductClient relays seller/admin product management to the backend.
type ProductClient struct {
	c *Client
}

func NewProductClient(baseURL string, opts Options) (*ProductClient, error) {
	c, err := NewClient("products", baseURL, opts)
	if err != nil {
		return nil, err
	}
	return &ProductClient{c: c}, nil
}

// Result mirrors the backend's {success, data, message} reply.
type Result struct {
	Product *domain.Product `json:"product,omitempty"`
	Message string          `json:"message,omitempty"`
}

type mutationReply struct {
	Data    *wireProduct `json:"data"`
	Message string       `json:"message"`
}

func (r mutationReply) toResult(fallback string) Result {
	out := Result{Message: r.Message}
	if out.Message == "" {
		out.Message = fallback
	}
	if r.Data != nil {
		p := r.Data.toDomain()
		out.Product = &p
	}
	return out
}

func (pc *ProductClient) Create(ctx context.Context, sess domain.Session, in domain.ProductInput) (Result, error) {
	var reply mutationReply
	err := pc.c.do(ctx, request{op: "create", method: http.MethodPost, path: "/products", token: sess.UpstreamToken, body: in}, &reply)
	if err != nil {
		return Result{}, err
	}
	return reply.toResult("Produit créé avec succès"), nil
}

func (pc *ProductClient) Update(ctx context.Context, sess domain.Session, id string, in domain.ProductInput) (Result, error) {
	var reply mutationReply
	err := pc.c.do(ctx, request{op: "update", method: http.MethodPut, path: "/products/" + url.PathEscape(id), token: sess.UpstreamToken, body: in}, &reply)
	if err != nil {
		return Result{}, err
	}
	return reply.toResult("Produit mis à jour avec succès"), nil
}

func (pc *ProductClient) Delete(ctx context.Context, sess domain.Session, id string) (Result, error) {
	var reply mutationReply
	err := pc.c.do(ctx, request{op: "delete", method: http.MethodDelete, path: "/products/" + url.PathEscape(id), token: sess.UpstreamToken}, &reply)
	if err != nil {
		return Result{}, err
	}
	return reply.toResult("Produit supprimé avec succès"), nil
}

type uploadReply struct {
	ImageURL string `json:"imageUrl"`
}

// UploadImage posts file as the multipart field "image" and returns the stored URL.
func (pc *ProductClient) UploadImage(ctx context.Context, sess domain.Session, filename string, file io.Reader) (string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("image", filename)
	if err != nil {
		return "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return "", fmt.Errorf("copy image: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("close multipart: %w", err)
	}

	var reply uploadReply
	err = pc.c.do(ctx, request{
		op:          "uploadImage",
		method:      http.MethodPost,
		path:        "/products/upload-image",
		token:       sess.UpstreamToken,
		rawBody:     &buf,
		contentType: mw.FormDataContentType(),
	}, &reply)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(reply.ImageURL) == "" {
		return "", pc.c.fail("uploadImage", http.StatusOK, "reply carried no imageUrl", nil)
	}
	return reply.ImageURL, nil
}
