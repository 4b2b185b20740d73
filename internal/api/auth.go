package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"

	"github.com/felixgeelhaar/cloudstudy/internal/store"
)

// Backend endpoints.
const (
	PathLogin    = "/login"
	PathRegister = "/register"
)

// LoginRequest is the JSON body of POST /login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse is a successful POST /login.
type LoginResponse struct {
	AccessToken string
	User        store.User
}

type loginWire struct {
	AccessToken string      `json:"access_token"`
	User        *store.User `json:"user"`
}

// Login exchanges credentials for an access token and the signed-in user.
func (c *Client) Login(ctx context.Context, in LoginRequest) (*LoginResponse, error) {
	body, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req := request{
		method:      http.MethodPost,
		path:        PathLogin,
		contentType: "application/json",
		body:        body,
		idempotent:  true,
	}

	resp, err := c.do(ctx, req)
	if err != nil {
		return nil, err
	}

	var out loginWire
	if err := c.decode(req, resp, &out); err != nil {
		return nil, err
	}
	if out.AccessToken == "" || out.User == nil {
		return nil, &ContractError{
			Method:     req.method,
			Path:       req.path,
			StatusCode: resp.status,
			Err:        errors.New("response is missing access_token or user"),
		}
	}

	return &LoginResponse{AccessToken: out.AccessToken, User: *out.User}, nil
}

// Image is a profile picture upload.
type Image struct {
	Filename string
	Data     []byte
}

// ImageFromFile reads the file at path.
func ImageFromFile(path string) (*Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	return &Image{Filename: filepath.Base(path), Data: data}, nil
}

// RegisterRequest is the multipart body of POST /register.
type RegisterRequest struct {
	Email    string
	Password string
	Image    *Image
}

// RegisterResponse is a successful POST /register. User is set when the
// backend echoes the created account.
type RegisterResponse struct {
	Message string      `json:"message"`
	User    *store.User `json:"user,omitempty"`
}

// Register creates an account. It never signs the user in, and it is sent
// once: a replay after a failure the backend already acted on would report
// a duplicate instead of the real error.
func (c *Client) Register(ctx context.Context, in RegisterRequest) (*RegisterResponse, error) {
	body, contentType, err := encodeRegister(in)
	if err != nil {
		return nil, err
	}

	req := request{
		method:      http.MethodPost,
		path:        PathRegister,
		contentType: contentType,
		body:        body,
	}

	resp, err := c.do(ctx, req)
	if err != nil {
		return nil, err
	}

	var out RegisterResponse
	if err := c.decode(req, resp, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func encodeRegister(in RegisterRequest) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	if err := w.WriteField("email", in.Email); err != nil {
		return nil, "", fmt.Errorf("failed to encode form: %w", err)
	}
	if err := w.WriteField("password", in.Password); err != nil {
		return nil, "", fmt.Errorf("failed to encode form: %w", err)
	}

	if in.Image != nil {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename=%q`, in.Image.Filename))
		h.Set("Content-Type", imageContentType(in.Image))

		part, err := w.CreatePart(h)
		if err != nil {
			return nil, "", fmt.Errorf("failed to encode image: %w", err)
		}
		if _, err := part.Write(in.Image.Data); err != nil {
			return nil, "", fmt.Errorf("failed to encode image: %w", err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to encode form: %w", err)
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

func imageContentType(img *Image) string {
	if t := mime.TypeByExtension(filepath.Ext(img.Filename)); t != "" {
		return t
	}
	return http.DetectContentType(img.Data)
}
