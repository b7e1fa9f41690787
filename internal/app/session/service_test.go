package session

import (
	"errors"
	"testing"
	"time"

	"shot-clock/internal/clock"
	"shot-clock/internal/store"
	"shot-clock/internal/testutil"

	"github.com/jonboulle/clockwork"
)

type fixture struct {
	svc    *Service
	reg    *store.Registry
	claims *store.ClaimIndex
	rooms  *testutil.RecordingBroadcaster
	clock  *clockwork.FakeClock
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	fc := clockwork.NewFakeClockAt(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	reg := store.NewRegistry(fc)
	claims := store.NewClaimIndex()
	rooms := testutil.NewRecordingBroadcaster()
	svc := NewService(reg, claims, rooms, fc, opts)
	t.Cleanup(svc.Close)
	return &fixture{svc: svc, reg: reg, claims: claims, rooms: rooms, clock: fc}
}

func (f *fixture) create(t *testing.T, id string) {
	t.Helper()
	if _, err := f.svc.Create(CreateRequest{ID: id, Settings: testutil.ThreeSeats()}); err != nil {
		t.Fatalf("create %s: %v", id, err)
	}
}

func (f *fixture) apply(t *testing.T, id string, actor Actor, a clock.Action) ActionResult {
	t.Helper()
	res, err := f.svc.Apply(id, actor, a)
	if err != nil {
		t.Fatalf("apply %s: %v", a.Kind(), err)
	}
	return res
}

var admin = Actor{DeviceID: "admin", Privileged: true}

func TestCreateAndGet(t *testing.T) {
	f := newFixture(t, Options{})
	res, err := f.svc.Create(CreateRequest{ID: " T1 ", Settings: testutil.ThreeSeats(), Secret: "pw"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if res.ID != "T1" || !res.Success {
		t.Fatalf("unexpected create response: %+v", res)
	}
	if _, err := f.svc.Create(CreateRequest{ID: "T1", Settings: testutil.ThreeSeats()}); !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
	if _, err := f.svc.Create(CreateRequest{ID: "", Settings: testutil.ThreeSeats()}); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
	if _, err := f.svc.Create(CreateRequest{ID: "T2"}); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest for empty settings, got %v", err)
	}
	view, err := f.svc.Get("T1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !view.HasSecret || len(view.State.Seats) != 3 {
		t.Fatalf("unexpected view: %+v", view)
	}
	if _, err := f.svc.Get("missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCreateFillsDefaults(t *testing.T) {
	f := newFixture(t, Options{Defaults: clock.Settings{SeatCount: 6, TimeLimit: 45, MaxTimeBank: 2}})
	if _, err := f.svc.Create(CreateRequest{ID: "T1", Settings: clock.SettingsPatch{SeatCount: testutil.Int(4)}}); err != nil {
		t.Fatalf("create: %v", err)
	}
	view, _ := f.svc.Get("T1")
	if len(view.State.Seats) != 4 || view.State.TimeLimit != 45 || view.State.Seats[0].TimeBank != 2 {
		t.Fatalf("defaults not applied: %+v", view.State)
	}
}

func TestCreateKeepsExplicitZeroTimeBank(t *testing.T) {
	f := newFixture(t, Options{Defaults: clock.Settings{SeatCount: 6, TimeLimit: 30, MaxTimeBank: 3}})
	req := CreateRequest{ID: "Z", Settings: clock.Settings{SeatCount: 2, TimeLimit: 60, MaxTimeBank: 0}.Patch()}
	if _, err := f.svc.Create(req); err != nil {
		t.Fatalf("create: %v", err)
	}
	view, _ := f.svc.Get("Z")
	if view.State.MaxTimeBank != 0 || view.Settings.MaxTimeBank != 0 {
		t.Fatalf("max time bank = %d, want 0", view.State.MaxTimeBank)
	}
	for _, seat := range view.State.Seats {
		if seat.TimeBank != 0 || seat.RemainingTime != 60 {
			t.Fatalf("seat %s: timeBank=%d remaining=%d", seat.ID, seat.TimeBank, seat.RemainingTime)
		}
	}

	zero := CreateRequest{ID: "Z0", Settings: clock.SettingsPatch{SeatCount: testutil.Int(2), TimeLimit: testutil.Int(0)}}
	if _, err := f.svc.Create(zero); err != nil {
		t.Fatalf("create: %v", err)
	}
	view, _ = f.svc.Get("Z0")
	if view.State.TimeLimit != 0 || view.State.Seats[0].RemainingTime != 0 || view.State.Seats[0].TimeBank != 3 {
		t.Fatalf("unexpected state: %+v", view.State)
	}
}

func TestUpdateSettingsKeepsExplicitZeroTimeBank(t *testing.T) {
	f := newFixture(t, Options{Defaults: clock.Settings{SeatCount: 6, TimeLimit: 30, MaxTimeBank: 3}})
	f.create(t, "T1")
	if err := f.svc.UpdateSettings("T1", admin, clock.SettingsPatch{MaxTimeBank: testutil.Int(0)}); err != nil {
		t.Fatalf("update settings: %v", err)
	}
	view, _ := f.svc.Get("T1")
	if len(view.State.Seats) != 6 || view.State.TimeLimit != 30 {
		t.Fatalf("omitted fields not defaulted: %+v", view.State)
	}
	for _, seat := range view.State.Seats {
		if seat.TimeBank != 0 {
			t.Fatalf("seat %s timeBank = %d, want 0", seat.ID, seat.TimeBank)
		}
	}
}

func TestJoinReportsPrivilegeAndClaim(t *testing.T) {
	f := newFixture(t, Options{})
	if _, err := f.svc.Create(CreateRequest{ID: "T1", Settings: testutil.ThreeSeats(), Secret: "pw"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	resp, err := f.svc.Join("T1", JoinRequest{DeviceID: "dA", Secret: "wrong"})
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	if resp.IsPrivileged || !resp.HasSecret || resp.ClaimedSeat != nil {
		t.Fatalf("unexpected join: %+v", resp)
	}
	f.apply(t, "T1", Actor{DeviceID: "dA"}, clock.Claim{Position: 2, Name: "Bob", DeviceID: "dA"})

	resp, err = f.svc.Join("T1", JoinRequest{DeviceID: "dA", Secret: "pw"})
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	if !resp.IsPrivileged {
		t.Fatal("matching secret should be privileged")
	}
	if resp.ClaimedSeat == nil || resp.ClaimedSeat.ID != "seat-2" || resp.ClaimedSeat.Name != "Bob" || resp.ClaimedSeat.Position != 2 {
		t.Fatalf("claimed seat = %+v", resp.ClaimedSeat)
	}

	anon, err := f.svc.Join("T1", JoinRequest{})
	if err != nil {
		t.Fatalf("join without device: %v", err)
	}
	if anon.DeviceID == "" {
		t.Fatal("expected issued device id")
	}
	if _, err := f.svc.Join("missing", JoinRequest{DeviceID: "dA"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestJoinWithoutSecretIsPrivileged(t *testing.T) {
	f := newFixture(t, Options{})
	f.create(t, "T1")
	resp, err := f.svc.Join("T1", JoinRequest{DeviceID: "dA"})
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	if !resp.IsPrivileged || resp.HasSecret {
		t.Fatalf("unexpected join: %+v", resp)
	}
}

func TestScenarioClaimStartTickTimeBankNext(t *testing.T) {
	f := newFixture(t, Options{})
	f.create(t, "T1")

	res := f.apply(t, "T1", Actor{DeviceID: "dA"}, clock.Claim{Position: 2, Name: "Bob", DeviceID: "dA"})
	if res.Claim == nil || res.Claim.ID != "seat-2" || !res.State.Seats[1].Claimed {
		t.Fatalf("claim result = %+v", res)
	}
	res = f.apply(t, "T1", admin, clock.Start{})
	if cur, _ := res.State.CurrentSeat(); cur.ID != "seat-2" {
		t.Fatalf("current = %s, want seat-2", cur.ID)
	}
	for i := 0; i < 5; i++ {
		res = f.apply(t, "T1", Actor{DeviceID: "display"}, clock.Tick{})
	}
	if res.State.Seats[1].RemainingTime != 25 {
		t.Fatalf("remaining = %d, want 25", res.State.Seats[1].RemainingTime)
	}
	res = f.apply(t, "T1", Actor{DeviceID: "dA"}, clock.UseTimeBank{SeatID: "seat-2"})
	if res.State.Seats[1].TimeBank != 0 || res.State.Seats[1].RemainingTime != 55 {
		t.Fatalf("after time bank: %+v", res.State.Seats[1])
	}
	before := f.rooms.Count("T1")
	if _, err := f.svc.Apply("T1", admin, clock.Next{}); !errors.Is(err, clock.ErrNoClaimedSeats) {
		t.Fatalf("expected no-op next, got %v", err)
	}
	if f.rooms.Count("T1") != before {
		t.Fatal("no-op next should not broadcast")
	}
	snap, _ := f.svc.Snapshot("T1")
	if cur, _ := snap.CurrentSeat(); cur.ID != "seat-2" || cur.RemainingTime != 55 {
		t.Fatalf("current after next = %+v", cur)
	}
}

func TestIdleTickStillBroadcasts(t *testing.T) {
	f := newFixture(t, Options{})
	f.create(t, "T1")
	stamp, _ := f.svc.Get("T1")
	f.clock.Advance(time.Minute)

	before := f.rooms.Count("T1")
	res := f.apply(t, "T1", Actor{DeviceID: "display"}, clock.Tick{})
	if f.rooms.Count("T1") != before+1 {
		t.Fatal("idle tick should broadcast")
	}
	if res.State.Seats[0].RemainingTime != 30 {
		t.Fatalf("idle tick changed time: %+v", res.State.Seats[0])
	}

	f.apply(t, "T1", Actor{DeviceID: "dA"}, clock.Claim{Position: 1, Name: "A", DeviceID: "dA"})
	f.apply(t, "T1", admin, clock.Start{})
	f.apply(t, "T1", admin, clock.Pause{})
	paused, _ := f.svc.Get("T1")
	f.clock.Advance(time.Minute)
	before = f.rooms.Count("T1")
	res = f.apply(t, "T1", Actor{DeviceID: "display"}, clock.Tick{})
	if f.rooms.Count("T1") != before+1 || res.State.Seats[0].RemainingTime != 30 {
		t.Fatalf("paused tick: broadcasts=%d seat=%+v", f.rooms.Count("T1")-before, res.State.Seats[0])
	}
	after, _ := f.svc.Get("T1")
	if !after.LastUpdated.Equal(paused.LastUpdated) || stamp.LastUpdated.Equal(paused.LastUpdated) {
		t.Fatalf("lastUpdated: created=%v paused=%v after=%v", stamp.LastUpdated, paused.LastUpdated, after.LastUpdated)
	}
}

func TestClaimConflicts(t *testing.T) {
	f := newFixture(t, Options{})
	f.create(t, "T1")
	f.apply(t, "T1", Actor{DeviceID: "dA"}, clock.Claim{Position: 1, Name: "A", DeviceID: "dA"})

	if _, err := f.svc.Apply("T1", Actor{DeviceID: "dB"}, clock.Claim{Position: 1, Name: "B", DeviceID: "dB"}); !errors.Is(err, ErrSeatUnavailable) {
		t.Fatalf("expected ErrSeatUnavailable, got %v", err)
	}
	if _, err := f.svc.Apply("T1", Actor{DeviceID: "dA"}, clock.Claim{Position: 2, Name: "A2", DeviceID: "dA"}); !errors.Is(err, ErrAlreadyClaimed) {
		t.Fatalf("expected ErrAlreadyClaimed, got %v", err)
	}
	if f.claims.Holds("dB", "T1") {
		t.Fatal("failed claim must not be recorded")
	}
	snap, _ := f.svc.Snapshot("T1")
	if snap.Seats[1].Claimed {
		t.Fatal("second seat should remain unclaimed")
	}
}

func TestTickDoesNotTouchLastUpdated(t *testing.T) {
	f := newFixture(t, Options{})
	f.create(t, "T1")
	f.apply(t, "T1", Actor{DeviceID: "dA"}, clock.Claim{Position: 1, Name: "A", DeviceID: "dA"})
	f.apply(t, "T1", admin, clock.Start{})
	stamp, _ := f.svc.Get("T1")

	f.clock.Advance(time.Minute)
	f.apply(t, "T1", Actor{DeviceID: "dA"}, clock.Tick{})
	after, _ := f.svc.Get("T1")
	if !after.LastUpdated.Equal(stamp.LastUpdated) {
		t.Fatal("tick should not update lastUpdated")
	}
	f.apply(t, "T1", admin, clock.Pause{})
	after, _ = f.svc.Get("T1")
	if !after.LastUpdated.Equal(f.clock.Now()) {
		t.Fatal("pause should update lastUpdated")
	}
}

func TestEveryAppliedActionBroadcasts(t *testing.T) {
	f := newFixture(t, Options{})
	f.create(t, "T1")
	f.apply(t, "T1", Actor{DeviceID: "dA"}, clock.Claim{Position: 1, Name: "A", DeviceID: "dA"})
	f.apply(t, "T1", admin, clock.Start{})
	f.apply(t, "T1", Actor{DeviceID: "dA"}, clock.Tick{})
	f.apply(t, "T1", admin, clock.Move{From: 0, To: 2})
	if got := f.rooms.Count("T1"); got != 4 {
		t.Fatalf("broadcasts = %d, want 4", got)
	}
	last, _ := f.rooms.Last("T1")
	if last.Seats[2].ID != "seat-1" || last.Seats[2].Position != 3 {
		t.Fatalf("last broadcast does not reflect move: %+v", last.Seats)
	}
}

func TestUnknownSessionIsIgnored(t *testing.T) {
	f := newFixture(t, Options{})
	if _, err := f.svc.Apply("ghost", admin, clock.Start{}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if f.rooms.Count("ghost") != 0 {
		t.Fatal("unknown session must not broadcast")
	}
}

func TestDeleteSessionKeepsClaimRecords(t *testing.T) {
	f := newFixture(t, Options{})
	f.create(t, "T1")
	f.apply(t, "T1", Actor{DeviceID: "dA"}, clock.Claim{Position: 1, Name: "A", DeviceID: "dA"})
	if err := f.svc.Delete("T1", admin); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := f.svc.Get("T1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if closed := f.rooms.Closed(); len(closed) != 1 || closed[0] != "T1" {
		t.Fatalf("closed rooms = %v", closed)
	}
	if rec, ok := f.claims.Lookup("dA"); !ok || rec.SessionID != "T1" {
		t.Fatalf("claim record should survive deletion: %+v", rec)
	}
	if _, err := f.svc.Apply("T1", admin, clock.Start{}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("actions after delete should fail, got %v", err)
	}
	if err := f.svc.Delete("T1", admin); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second delete = %v", err)
	}
}

func TestUpdateSettingsRetainsStaleClaims(t *testing.T) {
	f := newFixture(t, Options{ClaimPolicy: ClaimsRetain})
	f.create(t, "T1")
	f.apply(t, "T1", Actor{DeviceID: "dA"}, clock.Claim{Position: 1, Name: "A", DeviceID: "dA"})

	if err := f.svc.UpdateSettings("T1", admin, clock.Settings{SeatCount: 4, TimeLimit: 60, MaxTimeBank: 2}.Patch()); err != nil {
		t.Fatalf("update settings: %v", err)
	}
	snap, _ := f.svc.Snapshot("T1")
	if len(snap.Seats) != 4 || snap.ClaimedCount() != 0 {
		t.Fatalf("seats not rebuilt: %+v", snap)
	}
	if !f.claims.Holds("dA", "T1") {
		t.Fatal("retain policy should keep the stale record")
	}
	resp, _ := f.svc.Join("T1", JoinRequest{DeviceID: "dA"})
	if resp.ClaimedSeat != nil {
		t.Fatalf("stale record must not be reported: %+v", resp.ClaimedSeat)
	}
	if _, err := f.svc.Apply("T1", Actor{DeviceID: "dA"}, clock.Claim{Position: 1, Name: "A", DeviceID: "dA"}); !errors.Is(err, ErrAlreadyClaimed) {
		t.Fatalf("retained record should block reclaim, got %v", err)
	}
}

func TestUpdateSettingsReleasePolicy(t *testing.T) {
	f := newFixture(t, Options{ClaimPolicy: ClaimsRelease})
	f.create(t, "T1")
	f.apply(t, "T1", Actor{DeviceID: "dA"}, clock.Claim{Position: 1, Name: "A", DeviceID: "dA"})
	if err := f.svc.UpdateSettings("T1", admin, testutil.ThreeSeats()); err != nil {
		t.Fatalf("update settings: %v", err)
	}
	if f.claims.Holds("dA", "T1") {
		t.Fatal("release policy should drop the record")
	}
	f.apply(t, "T1", Actor{DeviceID: "dA"}, clock.Claim{Position: 1, Name: "A", DeviceID: "dA"})
}

func TestUpdateSettingsErrors(t *testing.T) {
	f := newFixture(t, Options{})
	f.create(t, "T1")
	if err := f.svc.UpdateSettings("T1", admin, clock.Settings{SeatCount: 99, TimeLimit: 1}.Patch()); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
	if err := f.svc.UpdateSettings("ghost", admin, testutil.ThreeSeats()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPrivilegeEnforcement(t *testing.T) {
	f := newFixture(t, Options{EnforcePrivilege: true})
	f.create(t, "T1")
	player := Actor{DeviceID: "dA"}
	f.apply(t, "T1", player, clock.Claim{Position: 1, Name: "A", DeviceID: "dA"})

	for _, a := range []clock.Action{clock.Start{}, clock.Pause{}, clock.Reset{}, clock.Move{From: 0, To: 1}, clock.SetCurrent{SeatID: "seat-1"}, clock.DeleteSession{}} {
		if _, err := f.svc.Apply("T1", player, a); !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("%s: expected ErrUnauthorized, got %v", a.Kind(), err)
		}
	}
	if err := f.svc.UpdateSettings("T1", player, testutil.ThreeSeats()); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for settings, got %v", err)
	}
	if _, err := f.svc.Apply("T1", player, clock.Rename{SeatID: "seat-2", Name: "X"}); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("renaming someone else's seat: %v", err)
	}
	f.apply(t, "T1", player, clock.Rename{SeatID: "seat-1", Name: "Alice"})
	if _, err := f.svc.Apply("T1", player, clock.Rename{SeatID: "seat-1", Name: "Al"}); !errors.Is(err, ErrSeatUnavailable) {
		t.Fatalf("second self rename: %v", err)
	}
	f.apply(t, "T1", admin, clock.Rename{SeatID: "seat-1", Name: "Al"})
	f.apply(t, "T1", Actor{DeviceID: "dB"}, clock.Claim{Position: 2, Name: "B", DeviceID: "dB"})
	f.apply(t, "T1", admin, clock.Start{})
	f.apply(t, "T1", player, clock.Next{})
	f.apply(t, "T1", player, clock.Tick{})
}

func TestNoEnforcementAllowsEveryone(t *testing.T) {
	f := newFixture(t, Options{})
	f.create(t, "T1")
	player := Actor{DeviceID: "dA"}
	f.apply(t, "T1", player, clock.Claim{Position: 1, Name: "A", DeviceID: "dA"})
	f.apply(t, "T1", player, clock.Start{})
	f.apply(t, "T1", player, clock.Rename{SeatID: "seat-2", Name: "X"})
	f.apply(t, "T1", player, clock.Rename{SeatID: "seat-2", Name: "Y"})
}

func TestEvictStopsRoom(t *testing.T) {
	f := newFixture(t, Options{})
	f.create(t, "T1")
	sess, _ := f.reg.Get("T1")
	if err := f.svc.Evict(sess); err != nil {
		t.Fatalf("evict: %v", err)
	}
	if closed := f.rooms.Closed(); len(closed) != 1 || closed[0] != "T1" {
		t.Fatalf("closed = %v", closed)
	}
}

func TestListSummaries(t *testing.T) {
	f := newFixture(t, Options{})
	f.create(t, "B")
	f.create(t, "A")
	f.apply(t, "A", Actor{DeviceID: "dA"}, clock.Claim{Position: 1, Name: "A", DeviceID: "dA"})
	list := f.svc.List()
	if len(list) != 2 || list[0].ID != "A" || list[0].Claimed != 1 || list[1].Seats != 3 {
		t.Fatalf("unexpected list: %+v", list)
	}
}

func TestErrorCode(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{ErrAlreadyExists, "already_exists"},
		{ErrNotFound, "not_found"},
		{ErrAlreadyClaimed, "already_claimed"},
		{ErrSeatUnavailable, "seat_unavailable"},
		{ErrUnauthorized, "unauthorized"},
		{clock.ErrInvalidSettings, "invalid_request"},
		{errors.New("x"), "internal_error"},
	}
	for _, tt := range tests {
		if got := ErrorCode(tt.err); got != tt.want {
			t.Fatalf("ErrorCode(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
