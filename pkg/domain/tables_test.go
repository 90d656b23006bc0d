package domain

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestCRUDTables(t *testing.T) {
	got := CRUDTables()
	want := []Table{TableContainers, TableEquipment, TableMetrics, TableResourceUsage, TableVessels, TableWeatherConditions}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestCatalogConsistency(t *testing.T) {
	for name, spec := range Tables {
		if spec.Name != name {
			t.Errorf("table %s has spec name %s", name, spec.Name)
		}
		if !spec.HasColumn(ColumnID) {
			t.Errorf("table %s lacks id column", name)
		}
		for _, req := range spec.Required {
			if !spec.HasColumn(req) {
				t.Errorf("table %s requires undeclared column %s", name, req)
			}
		}
	}
	if _, ok := Lookup("vessels"); !ok {
		t.Fatalf("vessels should be in the catalog")
	}
	if _, ok := Lookup("ships"); ok {
		t.Fatalf("ships should not be in the catalog")
	}
}

func TestCheckColumns(t *testing.T) {
	spec := Tables[TableVessels]
	if err := spec.CheckColumns(Row{"name": "Aurora", "status": "at_berth"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	err := spec.CheckColumns(Row{"name": "Aurora", "zeta": 1, "alpha": 2})
	if !IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if !strings.Contains(err.Error(), "alpha, zeta") {
		t.Fatalf("unknown columns should be sorted: %v", err)
	}
}

func TestCheckRequired(t *testing.T) {
	spec := Tables[TableContainers]
	if err := spec.CheckRequired(Row{"container_number": "MSCU1", "status": "in_port"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	err := spec.CheckRequired(Row{"container_number": "  "})
	if !IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if err.Error() != "missing required fields: container_number, status" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestErrorHelpers(t *testing.T) {
	nf := fmt.Errorf("load: %w", ErrNotFound{Table: TableVessels, ID: "9"})
	if !IsNotFound(nf) || IsValidation(nf) {
		t.Fatalf("classification failed for %v", nf)
	}
	if nf.Error() != "load: vessels 9 not found" {
		t.Fatalf("unexpected message %q", nf.Error())
	}
	field := ValidationError{Field: "email", Message: "is invalid"}
	if field.Error() != "email: is invalid" {
		t.Fatalf("unexpected message %q", field.Error())
	}
	if Invalid("limit %d too large", 5).Error() != "limit 5 too large" {
		t.Fatalf("Invalid formatting broken")
	}
	if IsNotFound(errors.New("plain")) {
		t.Fatalf("plain error is not a not-found")
	}
}
