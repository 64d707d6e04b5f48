package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/iota-uz/taskgate/modules/tasks/domain/changerequest"
	"github.com/iota-uz/taskgate/modules/tasks/services"
	"github.com/iota-uz/taskgate/pkg/application"
	"github.com/iota-uz/taskgate/pkg/composables"
	"github.com/iota-uz/taskgate/pkg/httpapi"
	"github.com/iota-uz/taskgate/pkg/serrors"
)

const maxBodyBytes = 1 << 20

type TasksAPIController struct {
	requests  *services.ChangeRequestService
	decisions *services.DecisionService
	queries   *services.TaskQueryService
	apiPrefix string
}

func NewTasksAPIController(
	requests *services.ChangeRequestService,
	decisions *services.DecisionService,
	queries *services.TaskQueryService,
) application.Controller {
	return &TasksAPIController{
		requests:  requests,
		decisions: decisions,
		queries:   queries,
		apiPrefix: "/tasks",
	}
}

func (c *TasksAPIController) Key() string {
	return c.apiPrefix
}

func (c *TasksAPIController) Register(r *mux.Router) {
	r.HandleFunc(c.apiPrefix, instrument("tasks.list", c.ListTasks)).Methods(http.MethodGet)

	api := r.PathPrefix(c.apiPrefix).Subrouter()
	api.HandleFunc("/unit-users", instrument("tasks.unit_users", c.ListUnitUsers)).Methods(http.MethodGet)
	api.HandleFunc("/permissions/me", instrument("tasks.permissions", c.MyPermissions)).Methods(http.MethodGet)

	api.HandleFunc("/change-requests/mine", instrument("change_requests.mine", c.ListMyRequests)).Methods(http.MethodGet)
	api.HandleFunc("/change-requests/pending", instrument("change_requests.pending", c.ListPending)).Methods(http.MethodGet)
	api.HandleFunc("/change-requests/{requestId}/decision", instrument("change_requests.decide", c.Decide)).Methods(http.MethodPost)

	api.HandleFunc("/requests/create", instrument("requests.create", c.RequestCreate)).Methods(http.MethodPost)
	api.HandleFunc("/{taskId}/requests/update", instrument("requests.update", c.RequestUpdate)).Methods(http.MethodPost)
	api.HandleFunc("/{taskId}/requests/complete", instrument("requests.complete", c.RequestComplete)).Methods(http.MethodPost)
	api.HandleFunc("/{taskId}/requests/delete", instrument("requests.delete", c.RequestDelete)).Methods(http.MethodPost)
}

func (c *TasksAPIController) ListTasks(w http.ResponseWriter, r *http.Request) {
	views, err := c.queries.ListVisibleTasks(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTaskResponses(views))
}

func (c *TasksAPIController) ListUnitUsers(w http.ResponseWriter, r *http.Request) {
	users, err := c.queries.ListUnitUsers(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponses(users))
}

func (c *TasksAPIController) MyPermissions(w http.ResponseWriter, r *http.Request) {
	identity, err := composables.UseIdentity(r.Context())
	if err != nil {
		writeServiceError(w, r, serrors.New(serrors.KindUnauthenticated, "UNAUTHENTICATED", "authentication required", err))
		return
	}
	perms, err := c.queries.PermissionsFor(r.Context(), identity.UserID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, permissionsResponse{UserID: identity.UserID, Permissions: perms})
}

func (c *TasksAPIController) ListMyRequests(w http.ResponseWriter, r *http.Request) {
	views, err := c.queries.ListOwnRequests(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toChangeRequestResponses(r.Context(), views))
}

func (c *TasksAPIController) ListPending(w http.ResponseWriter, r *http.Request) {
	views, err := c.queries.ListPendingApprovals(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toChangeRequestResponses(r.Context(), views))
}

func (c *TasksAPIController) RequestCreate(w http.ResponseWriter, r *http.Request) {
	var req createTaskRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}
	receipt, err := c.requests.SubmitCreate(r.Context(), services.CreateInput{
		Title:            req.Title,
		Description:      req.Description,
		Status:           req.Status,
		Priority:         req.Priority,
		DueDate:          req.DueDate,
		AssignedToUserID: req.AssignedToUserID,
		Reason:           req.Reason,
	})
	c.writeReceipt(w, r, receipt, err)
}

func (c *TasksAPIController) RequestUpdate(w http.ResponseWriter, r *http.Request) {
	taskID, err := pathID(r, "taskId")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	var req updateTaskRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}
	receipt, err := c.requests.SubmitUpdate(r.Context(), services.UpdateInput{
		TaskID:           taskID,
		Title:            req.Title,
		Description:      req.Description,
		Status:           req.Status,
		Priority:         req.Priority,
		DueDate:          req.DueDate,
		AssignedToUserID: req.AssignedToUserID,
		Reason:           req.Reason,
	})
	c.writeReceipt(w, r, receipt, err)
}

func (c *TasksAPIController) RequestComplete(w http.ResponseWriter, r *http.Request) {
	c.transition(w, r, c.requests.SubmitComplete)
}

func (c *TasksAPIController) RequestDelete(w http.ResponseWriter, r *http.Request) {
	c.transition(w, r, c.requests.SubmitDelete)
}

func (c *TasksAPIController) transition(
	w http.ResponseWriter,
	r *http.Request,
	submit func(ctx context.Context, in services.TransitionInput) (*changerequest.Receipt, error),
) {
	taskID, err := pathID(r, "taskId")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	var req transitionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}
	receipt, err := submit(r.Context(), services.TransitionInput{TaskID: taskID, Reason: req.Reason})
	c.writeReceipt(w, r, receipt, err)
}

func (c *TasksAPIController) Decide(w http.ResponseWriter, r *http.Request) {
	requestID, err := pathID(r, "requestId")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	var req decisionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}
	result, err := c.decisions.Decide(r.Context(), services.DecideInput{
		RequestID: requestID,
		Decision:  req.Decision,
		Comment:   req.Comment,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, decisionResponse{
		RequestID: result.RequestID,
		Status:    string(result.Status),
		TaskID:    result.TaskID,
	})
}

// writeReceipt answers 201 when the change was applied and 202 when it awaits review.
func (c *TasksAPIController) writeReceipt(w http.ResponseWriter, r *http.Request, receipt *changerequest.Receipt, err error) {
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	status := http.StatusAccepted
	if receipt.Status == changerequest.StatusApproved {
		status = http.StatusCreated
	}
	writeJSON(w, status, toReceiptResponse(receipt))
}

func toChangeRequestResponses(ctx context.Context, views []*changerequest.View) []changeRequestResponse {
	out := make([]changeRequestResponse, 0, len(views))
	for _, v := range views {
		payload := decodePayload(ctx, v)
		out = append(out, changeRequestResponse{
			ID:                v.ID,
			TaskID:            v.TaskID,
			TaskTitle:         v.TaskTitle,
			UnitID:            v.UnitID,
			UnitCode:          v.UnitCode,
			UnitName:          v.UnitName,
			RequestedByUserID: v.RequestedByUserID,
			RequesterName:     v.RequesterName,
			ChangeType:        string(v.ChangeType),
			Status:            string(v.Status),
			Reason:            v.Reason,
			Payload:           payload,
			RequestedAt:       v.RequestedAt,
			ReviewedAt:        v.ReviewedAt,
			ReviewedByUserID:  v.ReviewedByUserID,
			ReviewComment:     v.ReviewComment,
		})
	}
	return out
}

// decodePayload renders a stored payload as an object. An undecodable payload
// is logged and omitted from the response.
func decodePayload(ctx context.Context, v *changerequest.View) map[string]any {
	if len(v.Payload) == 0 {
		return nil
	}
	var payload map[string]any
	if err := json.Unmarshal(v.Payload, &payload); err != nil {
		composables.UseLogger(ctx).WithError(err).WithField("change_request_id", v.ID).
			Warn("change request payload is not a JSON object")
		return nil
	}
	return payload
}

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(mux.Vars(r)[name], 10, 64)
	if err != nil || id <= 0 {
		return 0, serrors.InvalidInput("TASKS_INVALID_PATH", name+" must be a positive integer").WithMeta("field", name)
	}
	return id, nil
}

// decodeJSON rejects unknown fields. An empty body decodes as {}.
func decodeJSON(r *http.Request, out any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return serrors.New(serrors.KindInvalidInput, "TASKS_INVALID_BODY", "request body is invalid", err)
	}
	return nil
}

func writeJSON[T any](w http.ResponseWriter, status int, payload T) {
	if err := httpapi.WriteJSON(w, status, payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	if serrors.KindOf(err) == serrors.KindInternal {
		composables.UseLogger(ctx).WithError(err).Error("tasks api request failed")
	}
	_ = httpapi.WriteServiceError(w, err, composables.UseRequestID(ctx))
}
