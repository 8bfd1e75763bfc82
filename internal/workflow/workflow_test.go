package workflow_test

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"docflow/internal/workflow"
)

var epoch = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func statuses(wf workflow.Workflow) []workflow.Status {
	out := make([]workflow.Status, 0, len(wf.Phases))
	for _, phase := range wf.Phases {
		out = append(out, phase.Status)
	}
	return out
}

func mustAdvance(t *testing.T, wf workflow.Workflow, phase workflow.PhaseName, to workflow.Status, notes string) (workflow.Workflow, []workflow.Event) {
	t.Helper()
	next, events, err := wf.Advance(phase, to, notes, epoch)
	if err != nil {
		t.Fatalf("Advance(%s, %s) failed: %v", phase, to, err)
	}
	if err := next.Validate(); err != nil {
		t.Fatalf("invariant violated after Advance(%s, %s): %v", phase, to, err)
	}
	return next, events
}

func approve(t *testing.T, wf workflow.Workflow, phase workflow.PhaseName) workflow.Workflow {
	t.Helper()
	wf, _ = mustAdvance(t, wf, phase, workflow.StatusReview, "")
	wf, _ = mustAdvance(t, wf, phase, workflow.StatusApproved, "ok")
	return wf
}

func TestNewWorkflowStartsResearch(t *testing.T) {
	wf := workflow.New("ep-1", epoch)

	want := []workflow.Status{
		workflow.StatusInProgress,
		workflow.StatusPending,
		workflow.StatusPending,
		workflow.StatusPending,
		workflow.StatusPending,
	}
	if got := statuses(wf); !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected initial statuses: %v", got)
	}
	if wf.Current != workflow.PhaseResearch {
		t.Fatalf("expected research to be current, got %q", wf.Current)
	}
	if wf.Phases[0].StartedAt == nil || !wf.Phases[0].StartedAt.Equal(epoch) {
		t.Fatalf("expected research startedAt to be set, got %v", wf.Phases[0].StartedAt)
	}
	if err := wf.Validate(); err != nil {
		t.Fatalf("new workflow invalid: %v", err)
	}
}

func TestResearchReviewThenApproveAutoAdvances(t *testing.T) {
	wf := workflow.New("ep-1", epoch)

	wf, events := mustAdvance(t, wf, workflow.PhaseResearch, workflow.StatusReview, "")
	want := []workflow.Status{workflow.StatusReview, workflow.StatusPending, workflow.StatusPending, workflow.StatusPending, workflow.StatusPending}
	if got := statuses(wf); !reflect.DeepEqual(got, want) {
		t.Fatalf("after review: %v", got)
	}
	if len(events) != 1 || events[0].Kind != workflow.EventReviewRequested {
		t.Fatalf("expected review requested event, got %+v", events)
	}

	later := epoch.Add(2 * time.Hour)
	wf, events, err := wf.Advance(workflow.PhaseResearch, workflow.StatusApproved, "solid sources", later)
	if err != nil {
		t.Fatalf("approve research: %v", err)
	}
	want = []workflow.Status{workflow.StatusApproved, workflow.StatusInProgress, workflow.StatusPending, workflow.StatusPending, workflow.StatusPending}
	if got := statuses(wf); !reflect.DeepEqual(got, want) {
		t.Fatalf("after approval: %v", got)
	}
	research := wf.Phases[0]
	if research.CompletedAt == nil || !research.CompletedAt.Equal(later) {
		t.Fatalf("expected completedAt %v, got %v", later, research.CompletedAt)
	}
	if research.ReviewNotes != "solid sources" {
		t.Fatalf("unexpected review notes %q", research.ReviewNotes)
	}
	archive := wf.Phases[1]
	if archive.StartedAt == nil || !archive.StartedAt.Equal(later) {
		t.Fatalf("expected archive startedAt %v, got %v", later, archive.StartedAt)
	}
	if wf.Current != workflow.PhaseArchive {
		t.Fatalf("expected archive current, got %q", wf.Current)
	}
	if len(events) != 2 || events[0].Kind != workflow.EventPhaseApproved || events[1].Kind != workflow.EventPhaseStarted || events[1].Phase != workflow.PhaseArchive {
		t.Fatalf("unexpected events: %+v", events)
	}
}

func TestApprovalTimestampsAreIndependent(t *testing.T) {
	wf := workflow.New("ep-1", epoch)
	wf, _ = mustAdvance(t, wf, workflow.PhaseResearch, workflow.StatusReview, "")
	wf, _ = mustAdvance(t, wf, workflow.PhaseResearch, workflow.StatusApproved, "ok")

	completed := wf.Phases[0].CompletedAt
	started := wf.Phases[1].StartedAt
	if completed == nil || started == nil {
		t.Fatalf("expected both timestamps set, got completed=%v started=%v", completed, started)
	}
	if completed == started {
		t.Fatal("completedAt and next startedAt share storage")
	}
	*completed = completed.Add(time.Hour)
	if !started.Equal(epoch) {
		t.Fatalf("mutating completedAt changed next startedAt to %v", started)
	}
}

func TestAdvanceNonActivePhaseFailsAndLeavesStateUnchanged(t *testing.T) {
	wf := workflow.New("ep-1", epoch)
	before := wf.Clone()

	next, events, err := wf.Advance(workflow.PhaseArchive, workflow.StatusApproved, "", epoch)
	if !errors.Is(err, workflow.ErrInvalidPhase) {
		t.Fatalf("expected ErrInvalidPhase, got %v", err)
	}
	var invalid *workflow.InvalidPhaseError
	if !errors.As(err, &invalid) || invalid.Active != workflow.PhaseResearch {
		t.Fatalf("expected InvalidPhaseError naming research, got %#v", err)
	}
	if events != nil {
		t.Fatalf("expected no events, got %+v", events)
	}
	if !reflect.DeepEqual(next, before) || !reflect.DeepEqual(wf, before) {
		t.Fatal("expected workflow to be unchanged")
	}
}

func TestAdvanceLaterPhaseBeforePredecessorApproved(t *testing.T) {
	wf := workflow.New("ep-1", epoch)
	wf = approve(t, wf, workflow.PhaseResearch)

	for _, phase := range []workflow.PhaseName{workflow.PhaseScript, workflow.PhaseVoiceover, workflow.PhaseAssembly} {
		for _, status := range workflow.AllStatuses() {
			if _, _, err := wf.Advance(phase, status, "", epoch); !errors.Is(err, workflow.ErrInvalidPhase) {
				t.Fatalf("Advance(%s, %s) expected ErrInvalidPhase, got %v", phase, status, err)
			}
		}
	}
	if _, _, err := wf.Advance(workflow.PhaseResearch, workflow.StatusInProgress, "", epoch); !errors.Is(err, workflow.ErrInvalidPhase) {
		t.Fatalf("expected approved research to be immutable, got %v", err)
	}
}

func TestUnknownPhaseIsInvalid(t *testing.T) {
	wf := workflow.New("ep-1", epoch)
	_, _, err := wf.Advance(workflow.PhaseName("colour"), workflow.StatusReview, "", epoch)
	if !errors.Is(err, workflow.ErrInvalidPhase) {
		t.Fatalf("expected ErrInvalidPhase, got %v", err)
	}
}

func TestIllegalTransitions(t *testing.T) {
	cases := []struct {
		name  string
		setup func(t *testing.T) workflow.Workflow
		to    workflow.Status
	}{
		{
			name:  "in progress straight to approved",
			setup: func(*testing.T) workflow.Workflow { return workflow.New("ep", epoch) },
			to:    workflow.StatusApproved,
		},
		{
			name:  "in progress to rejected",
			setup: func(*testing.T) workflow.Workflow { return workflow.New("ep", epoch) },
			to:    workflow.StatusRejected,
		},
		{
			name:  "in progress to pending",
			setup: func(*testing.T) workflow.Workflow { return workflow.New("ep", epoch) },
			to:    workflow.StatusPending,
		},
		{
			name: "review to in progress",
			setup: func(t *testing.T) workflow.Workflow {
				wf, _ := mustAdvance(t, workflow.New("ep", epoch), workflow.PhaseResearch, workflow.StatusReview, "")
				return wf
			},
			to: workflow.StatusInProgress,
		},
		{
			name: "rejected to approved",
			setup: func(t *testing.T) workflow.Workflow {
				wf, _ := mustAdvance(t, workflow.New("ep", epoch), workflow.PhaseResearch, workflow.StatusReview, "")
				wf, _ = mustAdvance(t, wf, workflow.PhaseResearch, workflow.StatusRejected, "thin")
				return wf
			},
			to: workflow.StatusApproved,
		},
		{
			name: "rejected to review",
			setup: func(t *testing.T) workflow.Workflow {
				wf, _ := mustAdvance(t, workflow.New("ep", epoch), workflow.PhaseResearch, workflow.StatusReview, "")
				wf, _ = mustAdvance(t, wf, workflow.PhaseResearch, workflow.StatusRejected, "thin")
				return wf
			},
			to: workflow.StatusReview,
		},
		{
			name:  "unknown status",
			setup: func(*testing.T) workflow.Workflow { return workflow.New("ep", epoch) },
			to:    workflow.Status("done"),
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			wf := tc.setup(t)
			before := wf.Clone()
			_, _, err := wf.Advance(workflow.PhaseResearch, tc.to, "", epoch)
			if !errors.Is(err, workflow.ErrIllegalTransition) {
				t.Fatalf("expected ErrIllegalTransition, got %v", err)
			}
			if !reflect.DeepEqual(wf, before) {
				t.Fatal("expected workflow unchanged after illegal transition")
			}
		})
	}
}

func TestRejectAndReviseRoundTrip(t *testing.T) {
	wf := workflow.New("ep-1", epoch)
	wf = approve(t, wf, workflow.PhaseResearch)
	wf = approve(t, wf, workflow.PhaseArchive)
	scriptStarted := *wf.Phases[2].StartedAt

	wf, _ = mustAdvance(t, wf, workflow.PhaseScript, workflow.StatusReview, "")
	wf, events := mustAdvance(t, wf, workflow.PhaseScript, workflow.StatusRejected, "needs more emotion")

	script, _ := wf.Phase(workflow.PhaseScript)
	if script.Status != workflow.StatusRejected {
		t.Fatalf("expected rejected, got %s", script.Status)
	}
	if script.ReviewNotes != "needs more emotion" {
		t.Fatalf("unexpected notes %q", script.ReviewNotes)
	}
	if len(events) != 1 || events[0].Kind != workflow.EventPhaseRejected {
		t.Fatalf("unexpected events %+v", events)
	}
	current, err := wf.CurrentPhase()
	if err != nil || current.Name != workflow.PhaseScript {
		t.Fatalf("expected script to remain active, got %+v err=%v", current, err)
	}
	if wf.Phases[3].Status != workflow.StatusPending {
		t.Fatalf("voiceover must stay pending after rejection, got %s", wf.Phases[3].Status)
	}

	wf, events = mustAdvance(t, wf, workflow.PhaseScript, workflow.StatusInProgress, "")
	if len(events) != 1 || events[0].Kind != workflow.EventPhaseStarted || events[0].From != workflow.StatusRejected {
		t.Fatalf("unexpected restart events %+v", events)
	}
	if !wf.Phases[2].StartedAt.Equal(scriptStarted) {
		t.Fatalf("revision must keep original startedAt")
	}

	wf = approve(t, wf, workflow.PhaseScript)
	if wf.Current != workflow.PhaseVoiceover {
		t.Fatalf("expected voiceover next, got %q", wf.Current)
	}
	if wf.Phases[2].CompletedAt == nil {
		t.Fatal("expected script completedAt after approval")
	}
}

func TestApprovingAssemblyCompletesWorkflow(t *testing.T) {
	wf := workflow.New("ep-1", epoch)
	for _, phase := range workflow.PhaseNames()[:workflow.PhaseCount-1] {
		wf = approve(t, wf, phase)
	}

	wf, _ = mustAdvance(t, wf, workflow.PhaseAssembly, workflow.StatusReview, "")
	wf, events := mustAdvance(t, wf, workflow.PhaseAssembly, workflow.StatusApproved, "picture lock")

	if !wf.Complete() {
		t.Fatal("expected workflow complete")
	}
	if wf.Current != "" {
		t.Fatalf("expected no current phase, got %q", wf.Current)
	}
	last := events[len(events)-1]
	if last.Kind != workflow.EventWorkflowCompleted {
		t.Fatalf("expected workflow completed event, got %+v", events)
	}
	if _, err := wf.CurrentPhase(); !errors.Is(err, workflow.ErrNoActivePhase) {
		t.Fatalf("expected ErrNoActivePhase, got %v", err)
	}
	var noActive *workflow.NoActivePhaseError
	if _, err := wf.CurrentPhase(); !errors.As(err, &noActive) || !noActive.Complete {
		t.Fatalf("expected complete NoActivePhaseError, got %v", err)
	}
	if _, _, err := wf.Advance(workflow.PhaseAssembly, workflow.StatusInProgress, "", epoch); !errors.Is(err, workflow.ErrInvalidPhase) {
		t.Fatalf("expected complete workflow to reject advances, got %v", err)
	}
	for name, status := range wf.Summary() {
		if status != workflow.StatusApproved {
			t.Fatalf("expected %s approved, got %s", name, status)
		}
	}
}

func TestDeferredWorkflowStartsOnRequest(t *testing.T) {
	wf := workflow.NewDeferred("ep-2", epoch)
	if err := wf.Validate(); err != nil {
		t.Fatalf("deferred workflow invalid: %v", err)
	}
	if wf.Started() {
		t.Fatal("expected deferred workflow not started")
	}
	if _, err := wf.CurrentPhase(); !errors.Is(err, workflow.ErrNoActivePhase) {
		t.Fatalf("expected ErrNoActivePhase before start, got %v", err)
	}
	if _, _, err := wf.Advance(workflow.PhaseArchive, workflow.StatusInProgress, "", epoch); !errors.Is(err, workflow.ErrInvalidPhase) {
		t.Fatalf("expected only research to be startable, got %v", err)
	}

	wf, events := mustAdvance(t, wf, workflow.PhaseResearch, workflow.StatusInProgress, "")
	if wf.Current != workflow.PhaseResearch || len(events) != 1 || events[0].Kind != workflow.EventPhaseStarted {
		t.Fatalf("unexpected start result current=%q events=%+v", wf.Current, events)
	}
}

func TestSingleActivePhaseAcrossFullRun(t *testing.T) {
	wf := workflow.New("ep-3", epoch)
	rejectOnce := map[workflow.PhaseName]bool{workflow.PhaseArchive: true, workflow.PhaseVoiceover: true}

	for _, phase := range workflow.PhaseNames() {
		wf, _ = mustAdvance(t, wf, phase, workflow.StatusReview, "")
		if rejectOnce[phase] {
			wf, _ = mustAdvance(t, wf, phase, workflow.StatusRejected, "again")
			wf, _ = mustAdvance(t, wf, phase, workflow.StatusInProgress, "")
			wf, _ = mustAdvance(t, wf, phase, workflow.StatusReview, "")
		}
		wf, _ = mustAdvance(t, wf, phase, workflow.StatusApproved, "")

		active := 0
		for _, p := range wf.Phases {
			if p.Status.IsActive() {
				active++
			}
		}
		if !wf.Complete() && active != 1 {
			t.Fatalf("after approving %s expected one active phase, got %d (%v)", phase, active, statuses(wf))
		}
	}
	if !wf.Complete() {
		t.Fatalf("expected completion, got %v", statuses(wf))
	}
}

func TestValidateRejectsBrokenSnapshots(t *testing.T) {
	base := workflow.New("ep", epoch)

	twoActive := base.Clone()
	twoActive.Phases[1].Status = workflow.StatusInProgress
	if err := twoActive.Validate(); err == nil {
		t.Fatal("expected error for two active phases")
	}

	skipped := base.Clone()
	done := epoch
	skipped.Phases[0].Status = workflow.StatusApproved
	skipped.Phases[0].CompletedAt = &done
	skipped.Current = ""
	if err := skipped.Validate(); err == nil {
		t.Fatal("expected error when approved phase has no started successor")
	}

	wrongCurrent := base.Clone()
	wrongCurrent.Current = workflow.PhaseScript
	if err := wrongCurrent.Validate(); err == nil {
		t.Fatal("expected error for mismatched current pointer")
	}

	truncated := base.Clone()
	truncated.Phases = truncated.Phases[:3]
	if err := truncated.Validate(); err == nil {
		t.Fatal("expected error for missing phases")
	}
}

func TestParseHelpers(t *testing.T) {
	if status, ok := workflow.ParseStatus(" In-Progress "); !ok || status != workflow.StatusInProgress {
		t.Fatalf("ParseStatus: got %q %v", status, ok)
	}
	if _, ok := workflow.ParseStatus("done"); ok {
		t.Fatal("expected unknown status to fail")
	}
	if phase, ok := workflow.ParsePhase("VOICEOVER"); !ok || phase != workflow.PhaseVoiceover {
		t.Fatalf("ParsePhase: got %q %v", phase, ok)
	}
	if workflow.PhaseAssembly.Position() != 5 {
		t.Fatalf("unexpected assembly position %d", workflow.PhaseAssembly.Position())
	}
	if got := workflow.StatusInProgress.Label(); got != "In Progress" {
		t.Fatalf("unexpected label %q", got)
	}
	if got := workflow.PhaseVoiceover.Label(); got != "Voiceover" {
		t.Fatalf("unexpected phase label %q", got)
	}
}
