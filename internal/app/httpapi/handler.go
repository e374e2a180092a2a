// Package httpapi exposes the REST and websocket surface over the
// application services.
package httpapi

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/flowstate/backend/internal/app"
	"github.com/flowstate/backend/internal/app/domain/event"
	"github.com/flowstate/backend/internal/app/domain/habit"
	"github.com/flowstate/backend/internal/app/domain/message"
	"github.com/flowstate/backend/internal/app/domain/notification"
	"github.com/flowstate/backend/internal/app/domain/task"
	"github.com/flowstate/backend/internal/app/metrics"
	"github.com/flowstate/backend/internal/app/services/habits"
	"github.com/flowstate/backend/internal/app/services/tasks"
	"github.com/flowstate/backend/internal/errors"
	"github.com/flowstate/backend/internal/middleware"
)

// SkipAuthPaths lists the endpoints served without a bearer token.
var SkipAuthPaths = []string{
	"/api/auth/register",
	"/api/auth/login",
	"/api/health-check",
	"/metrics",
}

// handler bundles HTTP endpoints for the application services.
type handler struct {
	app *app.Application
}

// NewHandler returns a mux exposing the core REST API, the websocket
// endpoint, and the Prometheus registry.
func NewHandler(application *app.Application) http.Handler {
	h := &handler{app: application}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/register", h.register)
	mux.HandleFunc("/api/auth/login", h.login)
	mux.HandleFunc("/api/user/profile", h.profile)
	mux.HandleFunc("/api/user/update", h.updateProfile)
	mux.HandleFunc("/api/users/search", h.searchUsers)
	mux.HandleFunc("/api/tasks", h.tasks)
	mux.HandleFunc("/api/tasks/", h.taskResource)
	mux.HandleFunc("/api/habits", h.habits)
	mux.HandleFunc("/api/habits/", h.habitResource)
	mux.HandleFunc("/api/events", h.events)
	mux.HandleFunc("/api/events/", h.eventResource)
	mux.HandleFunc("/api/friends", h.listFriends)
	mux.HandleFunc("/api/friends/add", h.addFriend)
	mux.HandleFunc("/api/friends/accept", h.acceptFriend)
	mux.HandleFunc("/api/notifications", h.notifications)
	mux.HandleFunc("/api/notifications/create", h.createNotification)
	mux.HandleFunc("/api/notifications/", h.notificationResource)
	mux.HandleFunc("/api/messages", h.messages)
	mux.HandleFunc("/api/focus/track", h.trackFocus)
	mux.HandleFunc("/api/health-check", h.healthCheck)
	mux.HandleFunc("/ws", h.websocket)
	mux.Handle("/metrics", metrics.Handler())
	return mux
}

// --- auth -------------------------------------------------------------------

func (h *handler) register(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var payload struct {
		Username string `json:"username"`
		Password string `json:"password"`
		Email    string `json:"email"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, errors.Validation("invalid request body"))
		return
	}

	u, err := h.app.Accounts.Register(r.Context(), payload.Username, payload.Password, payload.Email)
	if err != nil {
		writeError(w, err)
		return
	}
	token, err := h.app.Tokens.Issue(u.ID, u.Username)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"token": token,
		"user":  userView(u.ID, u.Username, u.Level, u.XP),
	})
}

func (h *handler) login(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var payload struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, errors.Validation("invalid request body"))
		return
	}

	u, token, err := h.app.Accounts.Login(r.Context(), payload.Username, payload.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"token": token,
		"user":  userView(u.ID, u.Username, u.Level, u.XP),
	})
}

func userView(id, username string, level, xp int) map[string]any {
	return map[string]any{"id": id, "username": username, "level": level, "xp": xp}
}

// --- users ------------------------------------------------------------------

func (h *handler) profile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	userID := middleware.GetUserID(r.Context())
	if username := r.URL.Query().Get("username"); username != "" {
		u, err := h.app.Accounts.GetByUsername(r.Context(), username)
		if err != nil {
			writeError(w, err)
			return
		}
		userID = u.ID
	}

	profile, err := h.app.Accounts.GetProfile(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (h *handler) updateProfile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var payload struct {
		AvatarURL string `json:"avatar_url"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, errors.Validation("invalid request body"))
		return
	}

	u, err := h.app.Accounts.UpdateAvatar(r.Context(), middleware.GetUserID(r.Context()), payload.AvatarURL)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"id":         u.ID,
		"username":   u.Username,
		"avatar_url": u.AvatarURL,
	})
}

func (h *handler) searchUsers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	users, err := h.app.Accounts.Search(r.Context(), r.URL.Query().Get("q"), 10)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]map[string]any, 0, len(users))
	for _, u := range users {
		out = append(out, map[string]any{"id": u.ID, "username": u.Username})
	}
	writeJSON(w, http.StatusOK, out)
}

// --- tasks ------------------------------------------------------------------

type subTaskPayload struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
}

type taskView struct {
	ID          string           `json:"id"`
	Title       string           `json:"title"`
	Description string           `json:"description"`
	Priority    string           `json:"priority"`
	Status      string           `json:"status"`
	TotalHours  int              `json:"total_hours"`
	Hours       int              `json:"hours"`
	SubTasks    []subTaskPayload `json:"subtasks"`
}

func toTaskView(t task.Task) taskView {
	subs := make([]subTaskPayload, 0, len(t.SubTasks))
	for _, st := range t.SubTasks {
		subs = append(subs, subTaskPayload{ID: st.ID, Title: st.Title, Completed: st.Completed})
	}
	return taskView{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Priority:    t.Priority,
		Status:      t.Status,
		TotalHours:  t.TotalHours,
		Hours:       t.Hours,
		SubTasks:    subs,
	}
}

func (h *handler) tasks(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	switch r.Method {
	case http.MethodPost:
		var payload struct {
			Title       string `json:"title"`
			Description string `json:"description"`
			Priority    string `json:"priority"`
			TotalHours  int    `json:"total_hours"`
		}
		if err := decodeJSON(r.Body, &payload); err != nil {
			writeError(w, errors.Validation("invalid request body"))
			return
		}

		created, err := h.app.Tasks.Create(r.Context(), userID, task.Task{
			Title:       payload.Title,
			Description: payload.Description,
			Priority:    payload.Priority,
			TotalHours:  payload.TotalHours,
		})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, toTaskView(created))

	case http.MethodGet:
		list, err := h.app.Tasks.List(r.Context(), userID)
		if err != nil {
			writeError(w, err)
			return
		}
		out := make([]taskView, 0, len(list))
		for _, t := range list {
			out = append(out, toTaskView(t))
		}
		writeJSON(w, http.StatusOK, out)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *handler) taskResource(w http.ResponseWriter, r *http.Request) {
	id := resourceID(r.URL.Path, "/api/tasks/")
	if id == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	userID := middleware.GetUserID(r.Context())

	switch r.Method {
	case http.MethodPatch:
		var payload struct {
			Status   *string           `json:"status"`
			Hours    *int              `json:"hours"`
			SubTasks *[]subTaskPayload `json:"subtasks"`
		}
		if err := decodeJSON(r.Body, &payload); err != nil {
			writeError(w, errors.Validation("invalid request body"))
			return
		}

		patch := tasks.Patch{Status: payload.Status, Hours: payload.Hours}
		if payload.SubTasks != nil {
			subs := make([]task.SubTask, 0, len(*payload.SubTasks))
			for _, st := range *payload.SubTasks {
				subs = append(subs, task.SubTask{ID: st.ID, TaskID: id, Title: st.Title, Completed: st.Completed})
			}
			patch.SubTasks = &subs
		}
		updated, err := h.app.Tasks.Update(r.Context(), userID, id, patch)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toTaskView(updated))

	case http.MethodDelete:
		if err := h.app.Tasks.Delete(r.Context(), userID, id); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// --- habits -----------------------------------------------------------------

type habitView struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Completion string `json:"completion"`
	Streak     int    `json:"streak"`
}

func toHabitView(hb habit.Habit) habitView {
	return habitView{ID: hb.ID, Title: hb.Title, Completion: hb.WeeklyCompletion, Streak: hb.Streak}
}

func (h *handler) habits(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	switch r.Method {
	case http.MethodPost:
		var payload struct {
			Title string `json:"title"`
		}
		if err := decodeJSON(r.Body, &payload); err != nil {
			writeError(w, errors.Validation("invalid request body"))
			return
		}

		created, err := h.app.Habits.Create(r.Context(), userID, habit.Habit{Title: payload.Title})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, toHabitView(created))

	case http.MethodGet:
		list, err := h.app.Habits.List(r.Context(), userID)
		if err != nil {
			writeError(w, err)
			return
		}
		out := make([]habitView, 0, len(list))
		for _, hb := range list {
			out = append(out, toHabitView(hb))
		}
		writeJSON(w, http.StatusOK, out)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *handler) habitResource(w http.ResponseWriter, r *http.Request) {
	id := resourceID(r.URL.Path, "/api/habits/")
	if id == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	userID := middleware.GetUserID(r.Context())

	switch r.Method {
	case http.MethodPatch, http.MethodPut:
		var payload struct {
			Title      *string `json:"title"`
			Completion *string `json:"completion"`
		}
		if err := decodeJSON(r.Body, &payload); err != nil {
			writeError(w, errors.Validation("invalid request body"))
			return
		}

		updated, err := h.app.Habits.Update(r.Context(), userID, id, habits.Patch{
			Title:            payload.Title,
			WeeklyCompletion: payload.Completion,
		})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toHabitView(updated))

	case http.MethodDelete:
		if err := h.app.Habits.Delete(r.Context(), userID, id); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// --- events -----------------------------------------------------------------

type eventView struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Date     string `json:"date"`
	Time     string `json:"time"`
	Category string `json:"category"`
}

func (h *handler) events(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	switch r.Method {
	case http.MethodPost:
		var payload struct {
			Title    string `json:"title"`
			Date     string `json:"date"`
			Time     string `json:"time"`
			Category string `json:"category"`
		}
		if err := decodeJSON(r.Body, &payload); err != nil {
			writeError(w, errors.Validation("invalid request body"))
			return
		}
		if payload.Category == "" {
			payload.Category = "general"
		}

		created, err := h.app.Events.Create(r.Context(), userID, event.Event{
			Title:    payload.Title,
			Date:     payload.Date,
			Time:     payload.Time,
			Category: payload.Category,
		})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, eventView{
			ID: created.ID, Title: created.Title, Date: created.Date,
			Time: created.Time, Category: created.Category,
		})

	case http.MethodGet:
		list, err := h.app.Events.List(r.Context(), userID)
		if err != nil {
			writeError(w, err)
			return
		}
		out := make([]eventView, 0, len(list))
		for _, ev := range list {
			out = append(out, eventView{
				ID: ev.ID, Title: ev.Title, Date: ev.Date,
				Time: ev.Time, Category: ev.Category,
			})
		}
		writeJSON(w, http.StatusOK, out)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *handler) eventResource(w http.ResponseWriter, r *http.Request) {
	id := resourceID(r.URL.Path, "/api/events/")
	if id == "" || r.Method != http.MethodDelete {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if err := h.app.Events.Delete(r.Context(), middleware.GetUserID(r.Context()), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- friends ----------------------------------------------------------------

func (h *handler) addFriend(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var payload struct {
		Target string `json:"target"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, errors.Validation("invalid request body"))
		return
	}

	if err := h.app.Friends.Add(r.Context(), middleware.GetUserID(r.Context()), payload.Target); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

func (h *handler) acceptFriend(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var payload struct {
		Sender string `json:"sender"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, errors.Validation("invalid request body"))
		return
	}

	if err := h.app.Friends.Accept(r.Context(), middleware.GetUserID(r.Context()), payload.Sender); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

func (h *handler) listFriends(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	list, err := h.app.Friends.List(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// --- notifications ----------------------------------------------------------

type notificationView struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Message string `json:"message"`
	Type    string `json:"type"`
	Read    bool   `json:"read"`
	Time    string `json:"time"`
}

func toNotificationView(n notification.Notification) notificationView {
	return notificationView{
		ID:      n.ID,
		Title:   n.Title,
		Message: n.Message,
		Type:    n.Type,
		Read:    n.Read,
		Time:    n.CreatedAt.Format("15:04"),
	}
}

func (h *handler) notifications(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	switch r.Method {
	case http.MethodGet:
		list, err := h.app.Notifications.List(r.Context(), userID)
		if err != nil {
			writeError(w, err)
			return
		}
		out := make([]notificationView, 0, len(list))
		for _, n := range list {
			out = append(out, toNotificationView(n))
		}
		writeJSON(w, http.StatusOK, out)

	case http.MethodDelete:
		if err := h.app.Notifications.Clear(r.Context(), userID); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// createNotification is the generic producer endpoint: any caller can
// push a notification to a user named by username.
func (h *handler) createNotification(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var payload struct {
		Username string `json:"username"`
		Title    string `json:"title"`
		Message  string `json:"message"`
		Type     string `json:"type"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, errors.Validation("invalid request body"))
		return
	}

	target, err := h.app.Accounts.GetByUsername(r.Context(), payload.Username)
	if err != nil {
		writeError(w, err)
		return
	}
	created, err := h.app.Notifications.Notify(r.Context(), target.ID,
		payload.Title, payload.Message, payload.Type, middleware.GetUsername(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"status": "success", "id": created.ID})
}

func (h *handler) notificationResource(w http.ResponseWriter, r *http.Request) {
	rest := resourceID(r.URL.Path, "/api/notifications/")
	if rest == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	userID := middleware.GetUserID(r.Context())

	if id, ok := strings.CutSuffix(rest, "/read"); ok {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if err := h.app.Notifications.MarkRead(r.Context(), userID, id); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
		return
	}

	if r.Method != http.MethodDelete {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if err := h.app.Notifications.Delete(r.Context(), userID, rest); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- messages ---------------------------------------------------------------

type messageView struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Sender    string `json:"sender"`
	Receiver  string `json:"receiver"`
	Timestamp string `json:"timestamp"`
}

func toMessageView(m message.Message) messageView {
	return messageView{
		ID:        m.ID,
		Text:      m.Text,
		Sender:    m.Sender,
		Receiver:  m.Receiver,
		Timestamp: m.Timestamp.Format("2006-01-02T15:04:05Z07:00"),
	}
}

func (h *handler) messages(w http.ResponseWriter, r *http.Request) {
	caller := middleware.GetUsername(r.Context())

	switch r.Method {
	case http.MethodGet:
		other := r.URL.Query().Get("with")
		if other == "" {
			writeJSON(w, http.StatusOK, []messageView{})
			return
		}
		list, err := h.app.Chat.History(r.Context(), caller, other)
		if err != nil {
			writeError(w, err)
			return
		}
		out := make([]messageView, 0, len(list))
		for _, m := range list {
			out = append(out, toMessageView(m))
		}
		writeJSON(w, http.StatusOK, out)

	case http.MethodPost:
		var payload struct {
			Text     string `json:"text"`
			Receiver string `json:"receiver"`
		}
		if err := decodeJSON(r.Body, &payload); err != nil {
			writeError(w, errors.Validation("invalid request body"))
			return
		}

		sent, err := h.app.Chat.Relay(r.Context(), caller, payload.Text, payload.Receiver)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, toMessageView(sent))

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// --- focus ------------------------------------------------------------------

func (h *handler) trackFocus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var payload struct {
		Hours float64 `json:"hours"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, errors.Validation("invalid request body"))
		return
	}

	u, err := h.app.Focus.Track(r.Context(), middleware.GetUserID(r.Context()), payload.Hours)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "success",
		"total":  u.TotalFocusHours,
	})
}

// --- infrastructure ---------------------------------------------------------

// healthCheck reports liveness and, when a maintainer is wired, pings
// the database and ensures the schema exists the way first-boot setup
// expects.
func (h *handler) healthCheck(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	m := h.app.Maintainer()
	if m == nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy", "database": "memory"})
		return
	}
	if err := m.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy", "error": err.Error()})
		return
	}
	if err := m.EnsureSchema(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy", "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy", "database": "ok"})
}

func (h *handler) websocket(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetUserID(r.Context())
	if identity == "" {
		writeError(w, errors.Unauthorized("websocket requires authentication"))
		return
	}
	h.app.Hub.ServeWS(w, r, identity)
}

// --- helpers ----------------------------------------------------------------

func resourceID(path, prefix string) string {
	return strings.Trim(strings.TrimPrefix(path, prefix), "/")
}

func decodeJSON(body io.ReadCloser, dst interface{}) error {
	defer body.Close()
	dec := json.NewDecoder(body)
	return dec.Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(errors.HTTPStatus(err))
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
