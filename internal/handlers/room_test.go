package handlers

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"chatroom-service/internal/mocks"
	"chatroom-service/internal/models"
	"chatroom-service/internal/repositories"
)

func setupRoomRouter(handler *RoomHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/chat/newChatRoom", handler.CreateRoom)
	r.GET("/chat/check/:username", handler.CheckUser)
	r.GET("/chat/chatRoom/:userId", handler.ListRoomsForUser)
	r.GET("/chat/members/:roomId", handler.ListMembers)
	r.POST("/chat/updateMember/:roomId", handler.AddMember)
	r.POST("/chat/removeMember/:roomId", handler.RemoveMember)
	return r
}

func TestCreateRoomSuccess(t *testing.T) {
	roomRepo := new(mocks.RoomRepositoryMock)
	userRepo := new(mocks.UserRepositoryMock)
	handler := NewRoomHandler(roomRepo, userRepo)
	router := setupRoomRouter(handler)

	alice := models.User{ID: primitive.NewObjectID(), Username: "alice"}
	bob := models.User{ID: primitive.NewObjectID(), Username: "bob"}

	userRepo.On("FindUsersByUsernames", mock.Anything, []string{"alice", "bob"}).
		Return([]models.User{alice, bob}, nil).Once()
	roomRepo.On("CreateRoom", mock.Anything, "family", []primitive.ObjectID{alice.ID, bob.ID}).
		Return(models.ChatRoom{ID: primitive.NewObjectID(), Name: "family", Members: []primitive.ObjectID{alice.ID, bob.ID}}, nil).Once()

	body := bytes.NewBufferString(`{"name":"family","members":["alice","bob"]}`)
	req := httptest.NewRequest(http.MethodPost, "/chat/newChatRoom", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	userRepo.AssertExpectations(t)
	roomRepo.AssertExpectations(t)
}

func TestCreateRoomRequiresTwoMembers(t *testing.T) {
	roomRepo := new(mocks.RoomRepositoryMock)
	userRepo := new(mocks.UserRepositoryMock)
	handler := NewRoomHandler(roomRepo, userRepo)
	router := setupRoomRouter(handler)

	body := bytes.NewBufferString(`{"name":"solo","members":["alice"]}`)
	req := httptest.NewRequest(http.MethodPost, "/chat/newChatRoom", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	roomRepo.AssertNotCalled(t, "CreateRoom", mock.Anything, mock.Anything, mock.Anything)
}

func TestCreateRoomUnresolvedUsername(t *testing.T) {
	roomRepo := new(mocks.RoomRepositoryMock)
	userRepo := new(mocks.UserRepositoryMock)
	handler := NewRoomHandler(roomRepo, userRepo)
	router := setupRoomRouter(handler)

	alice := models.User{ID: primitive.NewObjectID(), Username: "alice"}
	userRepo.On("FindUsersByUsernames", mock.Anything, []string{"alice", "ghost"}).
		Return([]models.User{alice}, nil).Once()

	body := bytes.NewBufferString(`{"name":"family","members":["alice","ghost"]}`)
	req := httptest.NewRequest(http.MethodPost, "/chat/newChatRoom", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	roomRepo.AssertNotCalled(t, "CreateRoom", mock.Anything, mock.Anything, mock.Anything)
	userRepo.AssertExpectations(t)
}

func TestCheckUserFound(t *testing.T) {
	userRepo := new(mocks.UserRepositoryMock)
	handler := NewRoomHandler(new(mocks.RoomRepositoryMock), userRepo)
	router := setupRoomRouter(handler)

	userRepo.On("GetUserByUsername", mock.Anything, "alice").
		Return(models.User{ID: primitive.NewObjectID(), Username: "alice"}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/chat/check/alice", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	userRepo.AssertExpectations(t)
}

func TestCheckUserNotFound(t *testing.T) {
	userRepo := new(mocks.UserRepositoryMock)
	handler := NewRoomHandler(new(mocks.RoomRepositoryMock), userRepo)
	router := setupRoomRouter(handler)

	userRepo.On("GetUserByUsername", mock.Anything, "ghost").
		Return(models.User{}, repositories.ErrUserNotFound).Once()

	req := httptest.NewRequest(http.MethodGet, "/chat/check/ghost", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	userRepo.AssertExpectations(t)
}

func TestListRoomsForUser(t *testing.T) {
	roomRepo := new(mocks.RoomRepositoryMock)
	handler := NewRoomHandler(roomRepo, new(mocks.UserRepositoryMock))
	router := setupRoomRouter(handler)

	userID := primitive.NewObjectID()
	roomRepo.On("ListRoomsForUser", mock.Anything, userID).
		Return([]models.ChatRoom{{ID: primitive.NewObjectID(), Name: "family"}}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/chat/chatRoom/"+userID.Hex(), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	roomRepo.AssertExpectations(t)
}

func TestAddMemberAlreadyInRoom(t *testing.T) {
	roomRepo := new(mocks.RoomRepositoryMock)
	userRepo := new(mocks.UserRepositoryMock)
	handler := NewRoomHandler(roomRepo, userRepo)
	router := setupRoomRouter(handler)

	roomID := primitive.NewObjectID()
	bob := models.User{ID: primitive.NewObjectID(), Username: "bob"}

	userRepo.On("GetUserByUsername", mock.Anything, "bob").Return(bob, nil).Once()
	roomRepo.On("AddMember", mock.Anything, roomID, bob.ID).
		Return(models.ChatRoom{}, repositories.ErrAlreadyMember).Once()

	body := bytes.NewBufferString(`{"username":"bob"}`)
	req := httptest.NewRequest(http.MethodPost, "/chat/updateMember/"+roomID.Hex(), body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	roomRepo.AssertExpectations(t)
}

func TestAddMemberSuccess(t *testing.T) {
	roomRepo := new(mocks.RoomRepositoryMock)
	userRepo := new(mocks.UserRepositoryMock)
	handler := NewRoomHandler(roomRepo, userRepo)
	router := setupRoomRouter(handler)

	roomID := primitive.NewObjectID()
	bob := models.User{ID: primitive.NewObjectID(), Username: "bob"}

	userRepo.On("GetUserByUsername", mock.Anything, "bob").Return(bob, nil).Once()
	roomRepo.On("AddMember", mock.Anything, roomID, bob.ID).
		Return(models.ChatRoom{ID: roomID, Members: []primitive.ObjectID{bob.ID}}, nil).Once()

	body := bytes.NewBufferString(`{"username":"bob"}`)
	req := httptest.NewRequest(http.MethodPost, "/chat/updateMember/"+roomID.Hex(), body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	roomRepo.AssertExpectations(t)
}

func TestRemoveMemberNotInRoom(t *testing.T) {
	roomRepo := new(mocks.RoomRepositoryMock)
	userRepo := new(mocks.UserRepositoryMock)
	handler := NewRoomHandler(roomRepo, userRepo)
	router := setupRoomRouter(handler)

	roomID := primitive.NewObjectID()
	bob := models.User{ID: primitive.NewObjectID(), Username: "bob"}

	userRepo.On("GetUserByUsername", mock.Anything, "bob").Return(bob, nil).Once()
	roomRepo.On("RemoveMember", mock.Anything, roomID, bob.ID).
		Return(models.ChatRoom{}, repositories.ErrNotMember).Once()

	body := bytes.NewBufferString(`{"username":"bob"}`)
	req := httptest.NewRequest(http.MethodPost, "/chat/removeMember/"+roomID.Hex(), body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	roomRepo.AssertExpectations(t)
}

func TestListMembersRoomNotFound(t *testing.T) {
	roomRepo := new(mocks.RoomRepositoryMock)
	handler := NewRoomHandler(roomRepo, new(mocks.UserRepositoryMock))
	router := setupRoomRouter(handler)

	roomID := primitive.NewObjectID()
	roomRepo.On("GetRoom", mock.Anything, roomID).
		Return(models.ChatRoom{}, repositories.ErrRoomNotFound).Once()

	req := httptest.NewRequest(http.MethodGet, "/chat/members/"+roomID.Hex(), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	roomRepo.AssertExpectations(t)
}

func TestListMembersSuccess(t *testing.T) {
	roomRepo := new(mocks.RoomRepositoryMock)
	userRepo := new(mocks.UserRepositoryMock)
	handler := NewRoomHandler(roomRepo, userRepo)
	router := setupRoomRouter(handler)

	roomID := primitive.NewObjectID()
	memberID := primitive.NewObjectID()

	roomRepo.On("GetRoom", mock.Anything, roomID).
		Return(models.ChatRoom{ID: roomID, Members: []primitive.ObjectID{memberID}}, nil).Once()
	userRepo.On("FindMembersByIDs", mock.Anything, []primitive.ObjectID{memberID}).
		Return([]models.MemberInfo{{ID: memberID, Username: "alice", Email: "alice@example.com"}}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/chat/members/"+roomID.Hex(), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "alice@example.com")
	roomRepo.AssertExpectations(t)
	userRepo.AssertExpectations(t)
}
