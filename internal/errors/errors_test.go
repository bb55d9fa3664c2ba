package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		want string
	}{
		{
			name: "error without cause",
			err: &AppError{
				Code:    ErrCodeNotFound,
				Message: "key not found",
			},
			want: "key not found",
		},
		{
			name: "error with cause",
			err: &AppError{
				Code:    ErrCodeInternal,
				Message: "failed to store",
				Cause:   errors.New("underlying error"),
			},
			want: "failed to store: underlying error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("AppError.Error() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	cause := errors.New("underlying error")
	err := &AppError{
		Code:    ErrCodeInternal,
		Message: "wrapped error",
		Cause:   cause,
	}

	if unwrapped := err.Unwrap(); !errors.Is(unwrapped, cause) {
		t.Errorf("AppError.Unwrap() = %v, want %v", unwrapped, cause)
	}
}

func TestConstructors(t *testing.T) {
	tests := []struct {
		name      string
		err       *AppError
		wantCode  ErrorCode
		wantField string
		check     func(error) bool
	}{
		{name: "not found", err: NotFound("missing"), wantCode: ErrCodeNotFound, check: IsNotFound},
		{name: "validation", err: Validation("bad"), wantCode: ErrCodeValidation, check: IsValidation},
		{
			name:      "validation field",
			err:       ValidationField("namespace", "required"),
			wantCode:  ErrCodeValidation,
			wantField: "namespace",
			check:     IsValidation,
		},
		{name: "internal", err: Internal("boom"), wantCode: ErrCodeInternal, check: IsInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Code != tt.wantCode {
				t.Errorf("Code = %v, want %v", tt.err.Code, tt.wantCode)
			}
			if tt.err.Field != tt.wantField {
				t.Errorf("Field = %q, want %q", tt.err.Field, tt.wantField)
			}
			if !tt.check(tt.err) {
				t.Errorf("predicate for %v returned false", tt.wantCode)
			}
		})
	}
}

func TestWrap(t *testing.T) {
	if Wrap(nil, ErrCodeInternal, "x") != nil {
		t.Error("Wrap(nil) should return nil")
	}

	cause := errors.New("dial tcp: refused")
	err := Wrapf(cause, ErrCodeUnavailable, "redis %s", "GET")
	if err.Message != "redis GET" {
		t.Errorf("Message = %q, want %q", err.Message, "redis GET")
	}
	if !errors.Is(err, cause) {
		t.Error("wrapped error should match its cause")
	}
	if !IsUnavailable(fmt.Errorf("outer: %w", err)) {
		t.Error("IsUnavailable should see through wrapping")
	}
}

func TestPredicates_NonAppError(t *testing.T) {
	plain := errors.New("plain")
	if IsNotFound(plain) || IsTimeout(plain) || IsCanceled(plain) || IsUnavailable(plain) {
		t.Error("predicates should be false for non-AppError")
	}
	if GetCode(plain) != "" || GetField(plain) != "" {
		t.Error("GetCode/GetField should be empty for non-AppError")
	}
}
