// Package backendtest runs an in-process stand-in for the cloudstudy backend.
// It serves POST /login and POST /register with the real backend's status
// codes and messages, hashes passwords with bcrypt and issues HS256 tokens.
package backendtest

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// TokenTTL is the lifetime of issued access tokens.
const TokenTTL = 15 * time.Minute

type account struct {
	id           int64
	email        string
	passwordHash []byte
	role         string
	pictureURL   *string
}

func (a *account) serialize() map[string]any {
	return map[string]any{
		"id":          a.id,
		"email":       a.email,
		"role":        a.role,
		"picture_url": a.pictureURL,
	}
}

// Upload is an image received by POST /register.
type Upload struct {
	Email    string
	Filename string
	Size     int64
}

// Server is a running fake backend.
type Server struct {
	*httptest.Server

	mu         sync.Mutex
	accounts   map[string]*account
	nextID     int64
	uploads    []Upload
	requestIDs []string
	failures   int
	delay      time.Duration

	secret []byte
}

// New starts a server. Call Close when done.
func New() *Server {
	s := &Server{
		accounts: make(map[string]*account),
		nextID:   1,
		secret:   []byte("backendtest-" + uuid.NewString()),
	}
	s.Server = httptest.NewServer(s.Handler())
	return s
}

// Handler returns the routes without starting a listener.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.observe)

	r.Post("/login", s.handleLogin)
	r.Post("/register", s.handleRegister)
	return r
}

// AddUser creates an account directly.
func (s *Server) AddUser(email, password, role string) int64 {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		panic(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addLocked(email, hash, role, nil).id
}

func (s *Server) addLocked(email string, hash []byte, role string, picture *string) *account {
	a := &account{id: s.nextID, email: email, passwordHash: hash, role: role, pictureURL: picture}
	s.nextID++
	s.accounts[email] = a
	return a
}

// Secret returns the token signing key.
func (s *Server) Secret() []byte {
	return s.secret
}

// FailNext makes the next n requests answer 500.
func (s *Server) FailNext(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = n
}

// SetDelay holds every response for d.
func (s *Server) SetDelay(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delay = d
}

// RequestIDs returns the X-Request-ID of every request seen, in order.
func (s *Server) RequestIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.requestIDs...)
}

// Uploads returns the images received so far.
func (s *Server) Uploads() []Upload {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Upload(nil), s.uploads...)
}

// HasUser reports whether email is registered.
func (s *Server) HasUser(email string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.accounts[email]
	return ok
}

func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")

		s.mu.Lock()
		s.requestIDs = append(s.requestIDs, id)
		fail := s.failures > 0
		if fail {
			s.failures--
		}
		delay := s.delay
		s.mu.Unlock()

		if id != "" {
			w.Header().Set("X-Request-ID", id)
		}

		if delay > 0 {
			select {
			case <-time.After(delay):
			case <-r.Context().Done():
				return
			}
		}

		if fail {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

type credentials struct {
	Email    *string `json:"email"`
	Password *string `json:"password"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body credentials
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Email == nil || body.Password == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Missing email or password"})
		return
	}

	s.mu.Lock()
	a := s.accounts[*body.Email]
	s.mu.Unlock()

	if a == nil || bcrypt.CompareHashAndPassword(a.passwordHash, []byte(*body.Password)) != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Invalid email or password"})
		return
	}

	token, err := s.issue(a)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"access_token": token, "user": a.serialize()})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	email, password, role, upload, err := readRegistration(r)
	if err != nil || email == "" || password == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Missing email or password"})
		return
	}
	if role != "user" && role != "admin" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid role"})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	s.mu.Lock()
	if _, exists := s.accounts[email]; exists {
		s.mu.Unlock()
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "User already exists"})
		return
	}

	var picture *string
	if upload != nil {
		url := fmt.Sprintf("https://res.cloudinary.com/cloudstudy/image/upload/%s%s",
			uuid.NewString(), strings.ToLower(filepath.Ext(upload.Filename)))
		picture = &url
		s.uploads = append(s.uploads, *upload)
	}
	a := s.addLocked(email, hash, role, picture)
	s.mu.Unlock()

	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "User registered successfully",
		"user":    a.serialize(),
	})
}

// readRegistration accepts the multipart form the client sends and the JSON
// body the backend also takes.
func readRegistration(r *http.Request) (email, password, role string, upload *Upload, err error) {
	role = "user"

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(8 << 20); err != nil {
			return "", "", "", nil, err
		}
		if v := r.FormValue("role"); v != "" {
			role = v
		}

		file, header, err := r.FormFile("image")
		switch {
		case err == nil:
			file.Close()
			upload = &Upload{Email: r.FormValue("email"), Filename: header.Filename, Size: header.Size}
		case !errors.Is(err, http.ErrMissingFile):
			return "", "", "", nil, err
		}
		return r.FormValue("email"), r.FormValue("password"), role, upload, nil
	}

	var body struct {
		credentials
		Role *string `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return "", "", "", nil, err
	}
	if body.Email == nil || body.Password == nil {
		return "", "", "", nil, errors.New("missing fields")
	}
	if body.Role != nil {
		role = *body.Role
	}
	return *body.Email, *body.Password, role, nil, nil
}

func (s *Server) issue(a *account) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(a.id, 10),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(TokenTTL)),
		ID:        uuid.NewString(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// VerifyToken checks a token issued by this server and returns its subject.
func (s *Server) VerifyToken(token string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
