package client_test

import (
	"context"
	"io"
	"log"
	"math/rand"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	server "hexworld/server"
	"hexworld/server/client"
	"hexworld/server/internal/grid"
	servernet "hexworld/server/internal/net"
	"hexworld/server/internal/terrain"
	"hexworld/server/models"
)

func newTestServer(t *testing.T) string {
	t.Helper()
	store := server.NewRoomStore(7)
	hub := server.NewHub(store, nil)
	handler := servernet.NewHTTPHandler(hub, models.Default(), servernet.HTTPHandlerConfig{
		Logger: log.New(io.Discard, "", 0),
	})
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func newClient(t *testing.T, url string) *client.Client {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	c, err := client.Dial(ctx, url, client.Options{
		TickInterval: time.Millisecond,
		Logger:       log.New(io.Discard, "", 0),
	})
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestCreateRoomAndJoin(t *testing.T) {
	url := newTestServer(t)
	ctx := testContext(t)

	owner := newClient(t, url)
	code, err := owner.CreateRoom(ctx)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if len(code) != 6 {
		t.Fatalf("room code %q has wrong length", code)
	}

	joiner := newClient(t, url)
	if err := joiner.JoinRoom(ctx, strings.ToLower(code)); err != nil {
		t.Fatalf("join failed: %v", err)
	}
	if joiner.Room() != code {
		t.Fatalf("joiner room = %q, want %q", joiner.Room(), code)
	}

	event, err := owner.NextMemberEvent(ctx)
	if err != nil {
		t.Fatalf("member event: %v", err)
	}
	if !event.Joined || event.ID != joiner.ID() {
		t.Fatalf("unexpected member event: %+v", event)
	}
}

func TestJoinUnknownRoomFails(t *testing.T) {
	url := newTestServer(t)
	ctx := testContext(t)

	c := newClient(t, url)
	err := c.JoinRoom(ctx, "NOSUCH")
	if err == nil {
		t.Fatal("joining an unknown room succeeded")
	}
	if err.Error() != server.RoomNotFoundReason {
		t.Fatalf("error = %q, want %q", err, server.RoomNotFoundReason)
	}
}

func TestTerrainConvergesAcrossClients(t *testing.T) {
	url := newTestServer(t)
	ctx := testContext(t)

	owner := newClient(t, url)
	if _, err := owner.CreateRoom(ctx); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	joiner := newClient(t, url)
	if err := joiner.JoinRoom(ctx, owner.Room()); err != nil {
		t.Fatalf("join failed: %v", err)
	}

	const radius = 2
	wantCells := len(grid.CellsWithinRadius(grid.Coord{}, radius))

	params := terrain.Params{
		Seed:       42,
		Octaves:    4,
		Scale:      0.15,
		Amplitude:  3,
		PeakHeight: 4,
		PeakWidth:  1.5,
		Peaks:      []terrain.Peak{{Q: 1, R: -1}},
	}
	sent, err := owner.ApplyTerrain(params, radius)
	if err != nil {
		t.Fatalf("terrain pass failed: %v", err)
	}
	if sent != wantCells {
		t.Fatalf("terrain submitted %d updates, want %d", sent, wantCells)
	}

	for _, c := range []*client.Client{owner, joiner} {
		for i := 0; i < wantCells; i++ {
			if _, err := c.NextCellUpdate(ctx); err != nil {
				t.Fatalf("update %d: %v", i, err)
			}
		}
	}

	if owner.Mirror().Len() != wantCells || joiner.Mirror().Len() != wantCells {
		t.Fatalf("mirrors diverged: owner=%d joiner=%d want=%d",
			owner.Mirror().Len(), joiner.Mirror().Len(), wantCells)
	}
	for _, coord := range grid.CellsWithinRadius(grid.Coord{}, radius) {
		a, okA := owner.Mirror().Cell(coord.ID())
		b, okB := joiner.Mirror().Cell(coord.ID())
		if !okA || !okB {
			t.Fatalf("cell %s missing from a mirror", coord.ID())
		}
		if a.Height == nil || b.Height == nil || *a.Height != *b.Height {
			t.Fatalf("cell %s heights diverged: %v vs %v", coord.ID(), a.Height, b.Height)
		}
		if *a.Height != terrain.QuantizeHeight(*a.Height) {
			t.Fatalf("cell %s height %v not on the step grid", coord.ID(), *a.Height)
		}
	}
}

func TestLateJoinerCatchesUpFromSnapshot(t *testing.T) {
	url := newTestServer(t)
	ctx := testContext(t)

	owner := newClient(t, url)
	if _, err := owner.CreateRoom(ctx); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	const radius = 2
	wantCells := len(grid.CellsWithinRadius(grid.Coord{}, radius))

	rng := rand.New(rand.NewSource(9))
	if _, err := owner.GenerateTerrain(rng, radius); err != nil {
		t.Fatalf("terrain pass failed: %v", err)
	}
	for i := 0; i < wantCells; i++ {
		if _, err := owner.NextCellUpdate(ctx); err != nil {
			t.Fatalf("echo %d: %v", i, err)
		}
	}

	// Small batch size forces the snapshot through several mirror ticks.
	dialCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	late, err := client.Dial(dialCtx, url, client.Options{
		BatchSize:    4,
		TickInterval: time.Millisecond,
		Logger:       log.New(io.Discard, "", 0),
	})
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	t.Cleanup(func() { late.Close() })

	if err := late.JoinRoom(ctx, owner.Room()); err != nil {
		t.Fatalf("join failed: %v", err)
	}
	if err := late.WaitSynced(ctx); err != nil {
		t.Fatalf("sync: %v", err)
	}
	if late.Mirror().Len() != wantCells {
		t.Fatalf("late mirror has %d cells, want %d", late.Mirror().Len(), wantCells)
	}
	for _, coord := range grid.CellsWithinRadius(grid.Coord{}, radius) {
		a, _ := owner.Mirror().Cell(coord.ID())
		b, ok := late.Mirror().Cell(coord.ID())
		if !ok || a.Height == nil || b.Height == nil || *a.Height != *b.Height {
			t.Fatalf("cell %s differs after snapshot", coord.ID())
		}
	}
}

func TestChatRoundTrip(t *testing.T) {
	url := newTestServer(t)
	ctx := testContext(t)

	owner := newClient(t, url)
	if _, err := owner.CreateRoom(ctx); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	joiner := newClient(t, url)
	if err := joiner.JoinRoom(ctx, owner.Room()); err != nil {
		t.Fatalf("join failed: %v", err)
	}

	if err := joiner.SendChat("anyone building here?"); err != nil {
		t.Fatalf("send chat: %v", err)
	}

	for _, c := range []*client.Client{owner, joiner} {
		chat, err := c.NextChat(ctx)
		if err != nil {
			t.Fatalf("chat: %v", err)
		}
		if chat.SenderID != joiner.ID() || chat.Text != "anyone building here?" {
			t.Fatalf("unexpected chat: %+v", chat)
		}
		if chat.Timestamp == 0 {
			t.Fatal("chat missing server timestamp")
		}
	}
}

func TestLeaveNotifiesRemainingMembers(t *testing.T) {
	url := newTestServer(t)
	ctx := testContext(t)

	owner := newClient(t, url)
	if _, err := owner.CreateRoom(ctx); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	joiner := newClient(t, url)
	if err := joiner.JoinRoom(ctx, owner.Room()); err != nil {
		t.Fatalf("join failed: %v", err)
	}
	if _, err := owner.NextMemberEvent(ctx); err != nil {
		t.Fatalf("join notice: %v", err)
	}

	joinerID := joiner.ID()
	joiner.Close()

	event, err := owner.NextMemberEvent(ctx)
	if err != nil {
		t.Fatalf("leave notice: %v", err)
	}
	if event.Joined || event.ID != joinerID {
		t.Fatalf("unexpected leave event: %+v", event)
	}
}
