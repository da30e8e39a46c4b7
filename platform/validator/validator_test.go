package validator

import "testing"

type sample struct {
	Email string `validate:"required,email"`
	Name  string `validate:"required,max=5"`
}

func TestSummaryListsFieldsInOrder(t *testing.T) {
	v := New()
	err := v.Struct(sample{Email: "nope", Name: "toolongname"})
	if err == nil {
		t.Fatalf("expected validation error")
	}
	got := Summary(err)
	want := "Email: email, Name: max=5"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestFieldErrorsNilForValidInput(t *testing.T) {
	v := New()
	if err := v.Struct(sample{Email: "a@example.com", Name: "Ana"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if FieldErrors(nil) != nil {
		t.Fatalf("expected nil field errors")
	}
}
