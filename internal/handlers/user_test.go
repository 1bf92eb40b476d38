package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"

	"chatroom-service/internal/mocks"
	"chatroom-service/internal/models"
	"chatroom-service/internal/repositories"
)

func setupUserRouter(handler *UserHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/users/register", handler.Register)
	r.POST("/users/login", handler.Login)
	return r
}

func TestRegisterSuccessHashesPassword(t *testing.T) {
	userRepo := new(mocks.UserRepositoryMock)
	handler := NewUserHandler(userRepo, nil)
	router := setupUserRouter(handler)

	userRepo.On("CreateUser", mock.Anything, mock.MatchedBy(func(user models.User) bool {
		if user.Username != "alice" || user.Email != "alice@example.com" || user.Phone != "0812345678" {
			return false
		}
		return bcrypt.CompareHashAndPassword([]byte(user.Password), []byte("s3cret")) == nil
	})).Return(models.User{ID: primitive.NewObjectID(), Username: "alice"}, nil).Once()

	body := bytes.NewBufferString(`{"email":"alice@example.com","password":"s3cret","username":"alice","phone":"0812345678","birthdate":"2000-01-01"}`)
	req := httptest.NewRequest(http.MethodPost, "/users/register", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	userRepo.AssertExpectations(t)
}

func TestRegisterMissingFields(t *testing.T) {
	userRepo := new(mocks.UserRepositoryMock)
	handler := NewUserHandler(userRepo, nil)
	router := setupUserRouter(handler)

	// No birthdate.
	body := bytes.NewBufferString(`{"email":"alice@example.com","password":"s3cret","username":"alice","phone":"0812345678"}`)
	req := httptest.NewRequest(http.MethodPost, "/users/register", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	userRepo.AssertNotCalled(t, "CreateUser", mock.Anything, mock.Anything)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	userRepo := new(mocks.UserRepositoryMock)
	handler := NewUserHandler(userRepo, nil)
	router := setupUserRouter(handler)

	userRepo.On("CreateUser", mock.Anything, mock.Anything).
		Return(models.User{}, repositories.ErrDuplicateUser).Once()

	body := bytes.NewBufferString(`{"email":"alice@example.com","password":"s3cret","username":"alice","phone":"0812345678","birthdate":"2000-01-01"}`)
	req := httptest.NewRequest(http.MethodPost, "/users/register", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "ถูกใช้งานแล้ว")
	userRepo.AssertExpectations(t)
}

func TestLoginSuccess(t *testing.T) {
	userRepo := new(mocks.UserRepositoryMock)
	handler := NewUserHandler(userRepo, nil)
	router := setupUserRouter(handler)

	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.DefaultCost)
	require.NoError(t, err)
	userID := primitive.NewObjectID()

	userRepo.On("GetUserByIdentifier", mock.Anything, "alice").
		Return(models.User{ID: userID, Username: "alice", Password: string(hash)}, nil).Once()

	body := bytes.NewBufferString(`{"identifier":"alice","password":"s3cret"}`)
	req := httptest.NewRequest(http.MethodPost, "/users/login", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, userID.Hex(), resp["userId"])
	userRepo.AssertExpectations(t)
}

func TestLoginAcceptsEmailField(t *testing.T) {
	userRepo := new(mocks.UserRepositoryMock)
	handler := NewUserHandler(userRepo, nil)
	router := setupUserRouter(handler)

	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.DefaultCost)
	require.NoError(t, err)

	userRepo.On("GetUserByIdentifier", mock.Anything, "alice@example.com").
		Return(models.User{ID: primitive.NewObjectID(), Password: string(hash)}, nil).Once()

	body := bytes.NewBufferString(`{"email":"alice@example.com","password":"s3cret"}`)
	req := httptest.NewRequest(http.MethodPost, "/users/login", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	userRepo.AssertExpectations(t)
}

func TestLoginWrongPassword(t *testing.T) {
	userRepo := new(mocks.UserRepositoryMock)
	handler := NewUserHandler(userRepo, nil)
	router := setupUserRouter(handler)

	hash, err := bcrypt.GenerateFromPassword([]byte("right"), bcrypt.DefaultCost)
	require.NoError(t, err)

	userRepo.On("GetUserByIdentifier", mock.Anything, "alice").
		Return(models.User{ID: primitive.NewObjectID(), Password: string(hash)}, nil).Once()

	body := bytes.NewBufferString(`{"identifier":"alice","password":"wrong"}`)
	req := httptest.NewRequest(http.MethodPost, "/users/login", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	userRepo.AssertExpectations(t)
}

func TestLoginUnknownIdentifier(t *testing.T) {
	userRepo := new(mocks.UserRepositoryMock)
	handler := NewUserHandler(userRepo, nil)
	router := setupUserRouter(handler)

	userRepo.On("GetUserByIdentifier", mock.Anything, "ghost").
		Return(models.User{}, repositories.ErrUserNotFound).Once()

	body := bytes.NewBufferString(`{"identifier":"ghost","password":"whatever"}`)
	req := httptest.NewRequest(http.MethodPost, "/users/login", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	userRepo.AssertExpectations(t)
}
