package content

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ayush/storyhub/backend/internal/apperr"
	"github.com/ayush/storyhub/backend/internal/auth"
	"github.com/ayush/storyhub/backend/internal/clock"
	"github.com/ayush/storyhub/backend/internal/httpjson"
	"github.com/ayush/storyhub/backend/internal/models"
	"github.com/ayush/storyhub/backend/internal/store"
)

// StoryStore defines the interface for story persistence.
type StoryStore interface {
	InsertStory(ctx context.Context, story *models.Story) error
	ListStories(ctx context.Context) ([]models.Story, error)
}

// MessageStore defines the interface for message persistence.
type MessageStore interface {
	InsertMessage(ctx context.Context, msg *models.Message) error
	Conversation(ctx context.Context, a, b string) ([]models.Message, error)
}

// UserDirectory resolves user ids referenced by stories and messages.
type UserDirectory interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

var errReceiverNotFound = apperr.ErrInvalidInput.WithMessage("receiver not found")

// Handler holds story, message and upload HTTP handlers.
type Handler struct {
	stories   StoryStore
	messages  MessageStore
	users     UserDirectory
	files     FileStore
	maxUpload int64
	clock     clock.Clock
	log       *slog.Logger
}

func NewHandler(stories StoryStore, messages MessageStore, users UserDirectory, files FileStore, maxUpload int64, clk clock.Clock, log *slog.Logger) *Handler {
	if clk == nil {
		clk = clock.Real{}
	}
	return &Handler{
		stories:   stories,
		messages:  messages,
		users:     users,
		files:     files,
		maxUpload: maxUpload,
		clock:     clk,
		log:       log,
	}
}

// CreateStory stores a story authored by the current user.
func (h *Handler) CreateStory(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		httpjson.WriteError(w, r, h.log, auth.ErrNoCredential)
		return
	}

	var req models.CreateStoryRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.WriteError(w, r, h.log, err)
		return
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		httpjson.WriteError(w, r, h.log, apperr.ErrInvalidInput.WithMessage("title is required"))
		return
	}

	story := &models.Story{
		AuthorID: user.ID,
		Title:    title,
		Script:   req.Script,
		Rating:   req.Rating,
		Category: req.Category,
		Img:      req.Img,
		Status:   req.Status,
	}
	if story.Category == "" {
		story.Category = models.DefaultStoryCategory
	}
	if story.Status == "" {
		story.Status = models.StoryDraft
	}

	if err := h.stories.InsertStory(r.Context(), story); err != nil {
		httpjson.WriteError(w, r, h.log, err)
		return
	}
	author := user.Summary()
	httpjson.WriteJSON(w, http.StatusCreated, models.StoryView{Story: *story, Author: &author})
}

// ListStories returns every story, newest first, with authors resolved.
func (h *Handler) ListStories(w http.ResponseWriter, r *http.Request) {
	stories, err := h.stories.ListStories(r.Context())
	if err != nil {
		httpjson.WriteError(w, r, h.log, err)
		return
	}

	ids := make([]string, 0, len(stories))
	for _, s := range stories {
		ids = append(ids, s.AuthorID)
	}
	authors, err := h.resolveUsers(r.Context(), ids)
	if err != nil {
		httpjson.WriteError(w, r, h.log, err)
		return
	}

	views := make([]models.StoryView, 0, len(stories))
	for _, s := range stories {
		views = append(views, models.StoryView{Story: s, Author: authors[s.AuthorID]})
	}
	httpjson.WriteJSON(w, http.StatusOK, views)
}

// SendMessage stores a message from the current user.
func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		httpjson.WriteError(w, r, h.log, auth.ErrNoCredential)
		return
	}

	var req models.SendMessageRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.WriteError(w, r, h.log, err)
		return
	}
	content := strings.TrimSpace(req.Content)
	if content == "" {
		httpjson.WriteError(w, r, h.log, apperr.ErrInvalidInput.WithMessage("content is required"))
		return
	}

	receiver, err := h.users.FindByID(r.Context(), req.Receiver)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			err = errReceiverNotFound
		}
		httpjson.WriteError(w, r, h.log, err)
		return
	}

	msg := &models.Message{
		SenderID:   user.ID,
		ReceiverID: receiver.ID,
		Content:    content,
	}
	if err := h.messages.InsertMessage(r.Context(), msg); err != nil {
		httpjson.WriteError(w, r, h.log, err)
		return
	}
	sender, recv := user.Summary(), receiver.Summary()
	httpjson.WriteJSON(w, http.StatusCreated, models.MessageView{Message: *msg, Sender: &sender, Receiver: &recv})
}

// Conversation returns the messages between the current user and {userId},
// oldest first.
func (h *Handler) Conversation(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		httpjson.WriteError(w, r, h.log, auth.ErrNoCredential)
		return
	}
	other := chi.URLParam(r, "userId")

	msgs, err := h.messages.Conversation(r.Context(), user.ID, other)
	if err != nil {
		httpjson.WriteError(w, r, h.log, err)
		return
	}

	participants, err := h.resolveUsers(r.Context(), []string{user.ID, other})
	if err != nil {
		httpjson.WriteError(w, r, h.log, err)
		return
	}

	views := make([]models.MessageView, 0, len(msgs))
	for _, m := range msgs {
		views = append(views, models.MessageView{
			Message:  m,
			Sender:   participants[m.SenderID],
			Receiver: participants[m.ReceiverID],
		})
	}
	httpjson.WriteJSON(w, http.StatusOK, views)
}

// resolveUsers looks up each distinct id once. Ids that no longer resolve
// map to nil.
func (h *Handler) resolveUsers(ctx context.Context, ids []string) (map[string]*models.UserSummary, error) {
	out := make(map[string]*models.UserSummary, len(ids))
	for _, id := range ids {
		if _, seen := out[id]; seen {
			continue
		}
		u, err := h.users.FindByID(ctx, id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				out[id] = nil
				continue
			}
			return nil, err
		}
		s := u.Summary()
		out[id] = &s
	}
	return out, nil
}
