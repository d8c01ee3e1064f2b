package apierrors

import (
	"errors"
	"fmt"
	"net/http"

	"compliance-tracker-api/internal/workflow"
)

// JsonErr represents the JSON structure for apierrors.
type JsonErr struct {
	ErrDetails Err `json:"error"`
}

// Err represents the error with a code, a taxonomy kind and a message.
type Err struct {
	Code    int                   `json:"code"`
	Kind    string                `json:"kind"`
	Message string                `json:"message"`
	Reason  string                `json:"reason,omitempty"`
	Details []workflow.FieldError `json:"details,omitempty"`
}

// Error implements the error interface for JsonErr.
func (e JsonErr) Error() string {
	return fmt.Sprintf("Code: %d, Kind: %s, Message: %s", e.ErrDetails.Code, e.ErrDetails.Kind, e.ErrDetails.Message)
}

const (
	KindUnauthorized = "unauthorized"
	KindInternal     = "internal"
)

type kindInfo struct {
	status int
	msgKey string
}

var kinds = map[string]kindInfo{
	"validation":         {http.StatusBadRequest, MsgValidation},
	"invalid_approvers":  {http.StatusBadRequest, MsgInvalidApprovers},
	"incomplete_data":    {http.StatusUnprocessableEntity, MsgIncompleteData},
	"forbidden":          {http.StatusForbidden, MsgForbidden},
	"not_found":          {http.StatusNotFound, MsgNotFound},
	"invalid_state":      {http.StatusConflict, MsgInvalidState},
	"invalid_transition": {http.StatusConflict, MsgInvalidTransition},
	"already_decided":    {http.StatusConflict, MsgAlreadyDecided},
	"conflict":           {http.StatusConflict, MsgConflict},
	KindUnauthorized:     {http.StatusUnauthorized, MsgUnauthorized},
	KindInternal:         {http.StatusInternalServerError, MsgInternal},
}

// StatusFor returns the HTTP status of a taxonomy kind.
func StatusFor(kind string) int {
	if k, ok := kinds[kind]; ok {
		return k.status
	}
	return http.StatusInternalServerError
}

// CreateError generates a JsonErr with a translated message.
func CreateError(code int, kind, msgKey, lang string) JsonErr {
	return JsonErr{ErrDetails: Err{
		Code:    code,
		Kind:    kind,
		Message: Translate(msgKey, lang),
	}}
}

// FromError classifies err and builds the matching response. Internal errors
// carry no reason so storage details do not leak.
func FromError(err error, lang string) JsonErr {
	kind := workflow.Kind(err)
	info, ok := kinds[kind]
	if !ok {
		kind, info = KindInternal, kinds[KindInternal]
	}
	out := CreateError(info.status, kind, info.msgKey, lang)
	if kind == KindInternal {
		return out
	}
	out.ErrDetails.Reason = err.Error()

	var verr *workflow.ValidationError
	if errors.As(err, &verr) {
		out.ErrDetails.Details = verr.Fields
	}
	return out
}
