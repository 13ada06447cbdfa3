package common

import (
	"context"
	"errors"
	"io"
	"testing"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestDocumentError(t *testing.T) {
	err := error(NewDocumentError("nota.xml", io.ErrUnexpectedEOF))
	if !errors.Is(err, ErrMalformedDocument) {
		t.Error("DocumentError should match ErrMalformedDocument")
	}
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Error("DocumentError should unwrap to its cause")
	}
	if errors.Is(err, ErrExport) {
		t.Error("DocumentError must not match ErrExport")
	}
	var docErr *DocumentError
	if !errors.As(err, &docErr) || docErr.Name != "nota.xml" {
		t.Errorf("errors.As = %+v", docErr)
	}
	if got := err.Error(); got != `malformed document "nota.xml": unexpected EOF` {
		t.Errorf("Error() = %q", got)
	}
}

func TestExportError(t *testing.T) {
	err := error(NewExportError("write", context.Canceled))
	if !errors.Is(err, ErrExport) || !errors.Is(err, context.Canceled) {
		t.Errorf("export error should match ErrExport and its cause: %v", err)
	}
	if errors.Is(err, ErrMalformedDocument) {
		t.Error("export error must not match ErrMalformedDocument")
	}
}

func TestStatusHelpers(t *testing.T) {
	cases := []struct {
		err  error
		code codes.Code
	}{
		{InvalidArgumentErrorf("bad %s", "x"), codes.InvalidArgument},
		{NotFoundError("x"), codes.NotFound},
		{UnavailableError("x"), codes.Unavailable},
	}
	for _, c := range cases {
		if got := status.Code(c.err); got != c.code {
			t.Errorf("status.Code(%v) = %v, want %v", c.err, got, c.code)
		}
	}
}

func TestContextRunID(t *testing.T) {
	ctx := WithSource(WithRunID(context.Background(), "run-1"), "cli")
	if RunIDFromContext(ctx) != "run-1" || SourceFromContext(ctx) != "cli" {
		t.Error("context values not round-tripped")
	}
	if RunIDFromContext(context.Background()) != "" {
		t.Error("expected empty run ID")
	}
}

func TestValidator(t *testing.T) {
	v := NewValidator().
		Field("name", "", Required).
		Field("id", "nope", UUID).
		Field("title", "abcdef", MaxLength(3)).
		Field("out", "ok.xlsx", SpreadsheetName)
	if len(v.Errors()) != 3 {
		t.Fatalf("errors = %+v", v.Errors())
	}
	if status.Code(ValidateAndReturnError(v)) != codes.InvalidArgument {
		t.Error("expected InvalidArgument")
	}
	if ValidateAndReturnError(NewValidator()) != nil {
		t.Error("empty validator should pass")
	}
}
