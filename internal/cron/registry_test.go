package cron

import (
	"context"
	"strings"
	"testing"
)

type namedJob string

func (j namedJob) Name() string              { return string(j) }
func (j namedJob) Run(context.Context) error { return nil }

func TestRegistryKeepsRegistrationOrder(t *testing.T) {
	registry := NewRegistry(namedJob("integration-token-refresh"), nil, namedJob("notification-cleanup"))
	registry.Register(namedJob("permission-request-expiry"))
	registry.Register(nil)

	jobs := registry.Jobs()
	want := []string{"integration-token-refresh", "notification-cleanup", "permission-request-expiry"}
	if len(jobs) != len(want) {
		t.Fatalf("expected %d jobs, got %d", len(want), len(jobs))
	}
	for i, name := range want {
		if jobs[i].Name() != name {
			t.Fatalf("job %d: expected %s, got %s", i, name, jobs[i].Name())
		}
	}
}

func TestRegistryJobsReturnsCopy(t *testing.T) {
	registry := NewRegistry(namedJob("outbox-retention"))
	jobs := registry.Jobs()
	jobs[0] = namedJob("tampered")
	if got := registry.Jobs()[0].Name(); got != "outbox-retention" {
		t.Fatalf("registry mutated through returned slice: %s", got)
	}
}

func TestRegistryReplacesJobWithSameName(t *testing.T) {
	registry := NewRegistry(namedJob("notification-cleanup"), namedJob("outbox-retention"))
	replacement := &testJob{name: "notification-cleanup"}
	registry.Register(replacement)

	jobs := registry.Jobs()
	if len(jobs) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(jobs))
	}
	if jobs[0] != Job(replacement) {
		t.Fatalf("expected replacement to keep the first slot, got %T", jobs[0])
	}
}

func TestRegistrySelect(t *testing.T) {
	registry := NewRegistry(namedJob("integration-token-refresh"), namedJob("notification-cleanup"), namedJob("outbox-retention"))

	picked, err := registry.Select("outbox-retention", " integration-token-refresh")
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	jobs := picked.Jobs()
	if len(jobs) != 2 || jobs[0].Name() != "outbox-retention" || jobs[1].Name() != "integration-token-refresh" {
		t.Fatalf("unexpected selection %v", jobs)
	}

	if _, err := registry.Select("permission-expiry"); err == nil || !strings.Contains(err.Error(), "notification-cleanup") {
		t.Fatalf("expected unknown-job error listing registered names, got %v", err)
	}
}
