package sequence

import (
	"strings"
	"testing"

	"leadflow_backend/internal/leads/domain"
)

func TestDefaultCatalogCoversEveryProgram(t *testing.T) {
	cat, err := DefaultCatalog()
	if err != nil {
		t.Fatalf("default catalog: %v", err)
	}
	want := map[domain.Program][]int{
		domain.ProgramVeterans: {1, 3, 7},
		domain.ProgramRecovery: {1, 4},
		domain.ProgramReentry:  {2, 5},
	}
	for program, days := range want {
		steps, ok := cat.Steps(program)
		if !ok || len(steps) != len(days) {
			t.Fatalf("%s: expected %d steps, got %d", program, len(days), len(steps))
		}
		for i, d := range days {
			if steps[i].DayOffset != d {
				t.Errorf("%s step %d: expected day %d, got %d", program, i, d, steps[i].DayOffset)
			}
		}
	}
}

func TestStepRenderPersonalizesAndEscapes(t *testing.T) {
	cat, err := DefaultCatalog()
	if err != nil {
		t.Fatalf("default catalog: %v", err)
	}
	steps, _ := cat.Steps(domain.ProgramVeterans)
	subject, body, err := steps[1].Render(TemplateData{FirstName: "<Ana>", ProgramLabel: "Veterans Housing"})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(subject, "<Ana>") {
		t.Errorf("subject should carry the raw name, got %q", subject)
	}
	if !strings.Contains(body, "&lt;Ana&gt;") {
		t.Errorf("body should escape the name, got %q", body)
	}
}

const validProgramsTail = `
  recovery:
    steps:
      - {day: 1, subject: "s", body: "b"}
  reentry:
    steps:
      - {day: 2, subject: "s", body: "b"}
`

func TestLoadCatalogRejectsInvalidDocuments(t *testing.T) {
	cases := map[string]string{
		"missing program": `
programs:
  veterans:
    steps:
      - {day: 1, subject: "s", body: "b"}
  recovery:
    steps:
      - {day: 1, subject: "s", body: "b"}
`,
		"unknown program": `
programs:
  general:
    steps:
      - {day: 1, subject: "s", body: "b"}
  veterans:
    steps:
      - {day: 1, subject: "s", body: "b"}` + validProgramsTail,
		"decreasing offsets": `
programs:
  veterans:
    steps:
      - {day: 3, subject: "s", body: "b"}
      - {day: 1, subject: "s", body: "b"}` + validProgramsTail,
		"empty steps": `
programs:
  veterans:
    steps: []` + validProgramsTail,
		"unknown action": `
programs:
  veterans:
    steps:
      - {day: 1, action: send_flowers, subject: "s", body: "b"}` + validProgramsTail,
		"unknown field": `
programs:
  veterans:
    steps:
      - {day: 1, subject: "s", body: "b", delay: 4}` + validProgramsTail,
		"unknown template field": `
programs:
  veterans:
    steps:
      - {day: 1, subject: "Hi {{.Nickname}}", body: "b"}` + validProgramsTail,
		"missing body": `
programs:
  veterans:
    steps:
      - {day: 1, subject: "s"}` + validProgramsTail,
	}
	for name, doc := range cases {
		if _, err := LoadCatalog([]byte(doc)); err == nil {
			t.Errorf("%s: expected load error", name)
		}
	}
}

func TestLoadCatalogAcceptsMinimalDocument(t *testing.T) {
	doc := `
programs:
  veterans:
    steps:
      - {day: 0, action: call_reminder, subject: "Hi {{.FirstName}}", body: "<p>{{.ProgramLabel}}</p>"}` + validProgramsTail
	cat, err := LoadCatalog([]byte(doc))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cat.Len(domain.ProgramVeterans) != 1 || cat.Len(domain.Program("general")) != 0 {
		t.Fatalf("unexpected catalog lengths")
	}
}
