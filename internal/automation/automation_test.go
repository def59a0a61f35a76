package automation

import "testing"

func TestValidateRequiresCoreFields(t *testing.T) {
	d := Descriptor{
		Title:         "Job postings",
		ExtractFields: "job title, company",
		Destination:   Destination{Name: "Job Tracker"},
	}
	if err := d.Validate(); err != nil {
		t.Fatalf("expected valid descriptor, got %v", err)
	}

	missingTitle := d
	missingTitle.Title = " "
	if err := missingTitle.Validate(); err == nil {
		t.Fatalf("expected error for missing title")
	}

	missingDest := d
	missingDest.Destination = Destination{}
	if err := missingDest.Validate(); err == nil {
		t.Fatalf("expected error for missing destination")
	}
}

func TestSplitFields(t *testing.T) {
	fields := SplitFields("job title, company,, location , salary")
	if len(fields) != 4 {
		t.Fatalf("expected 4 fields, got %d: %v", len(fields), fields)
	}
	if fields[0] != "job title" || fields[3] != "salary" {
		t.Fatalf("unexpected field parse: %v", fields)
	}

	free := SplitFields("everything about pricing changes")
	if len(free) != 1 {
		t.Fatalf("expected free-form spec to parse as one field, got %v", free)
	}
}
