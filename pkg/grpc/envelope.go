package grpc

import (
	"encoding/json"
	"errors"
	"fmt"

	"google.golang.org/protobuf/types/known/structpb"
	"liyu1981.xyz/roomwatch-service/pkg/models"
)

// Status codes carried in the reply envelope. They let a client tell
// "not yours" apart from "bad input" without parsing messages.
const (
	CodeOK              = "ok"
	CodeInvalid         = "invalid"
	CodeNotFound        = "not_found"
	CodeUnauthenticated = "unauthenticated"
	CodeInternal        = "internal"
)

func errorCode(err error) string {
	switch {
	case errors.Is(err, models.ErrValidation):
		return CodeInvalid
	case errors.Is(err, models.ErrNotFound):
		return CodeNotFound
	case errors.Is(err, models.ErrAuthRequired):
		return CodeUnauthenticated
	}
	return CodeInternal
}

// plain converts v to the map/slice/scalar form structpb accepts.
func plain(v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func toStruct(v any) (*structpb.Struct, error) {
	p, err := plain(v)
	if err != nil {
		return nil, err
	}
	m, ok := p.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%T does not encode to an object", v)
	}
	return structpb.NewStruct(m)
}

// fromValue decodes one field of a reply into dst by way of JSON.
func fromValue(v *structpb.Value, dst any) error {
	b, err := v.MarshalJSON()
	if err != nil {
		return err
	}
	return json.Unmarshal(b, dst)
}

func envelope(success bool, code, message string, fields map[string]any) (*structpb.Struct, error) {
	body := map[string]any{}
	for k, v := range fields {
		p, err := plain(v)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s: %w", k, err)
		}
		body[k] = p
	}
	body["status"] = map[string]any{"success": success, "code": code, "message": message}
	return structpb.NewStruct(body)
}

func succeed(fields map[string]any) (*structpb.Struct, error) {
	return envelope(true, CodeOK, "OK", fields)
}

func failed(err error) (*structpb.Struct, error) {
	return envelope(false, errorCode(err), err.Error(), nil)
}

func invalid(issues any) (*structpb.Struct, error) {
	return envelope(false, CodeInvalid, fmt.Sprintf("validation error: %v", issues), nil)
}

type replyStatus struct {
	Success bool   `json:"success"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// statusOf reads the envelope of a reply and turns a failure back into an
// error wrapping the matching sentinel.
func statusOf(reply *structpb.Struct) error {
	v, found := reply.GetFields()["status"]
	if !found {
		return errors.New("reply without status")
	}
	var st replyStatus
	if err := fromValue(v, &st); err != nil {
		return err
	}
	if st.Success {
		return nil
	}
	switch st.Code {
	case CodeInvalid:
		return fmt.Errorf("%w: %s", models.ErrValidation, st.Message)
	case CodeNotFound:
		return fmt.Errorf("%w: %s", models.ErrNotFound, st.Message)
	case CodeUnauthenticated:
		return fmt.Errorf("%w: %s", models.ErrAuthRequired, st.Message)
	}
	return errors.New(st.Message)
}
