package services

import (
	"errors"
	"testing"
	"time"

	"owlhoot/models"

	"gorm.io/gorm"
)

func awaitSnapshot(t *testing.T, ch <-chan []models.Player) []models.Player {
	t.Helper()
	select {
	case snap := <-ch:
		return snap
	case <-time.After(time.Second):
		t.Fatal("no snapshot delivered")
		return nil
	}
}

func TestInsertCreatesFullyJoinedPlayer(t *testing.T) {
	store := NewPlayerStore(openTestDB(t))

	player, err := store.Insert("mikkel", "green")
	if err != nil {
		t.Fatal(err)
	}
	if player.ID == "" {
		t.Fatal("insert did not assign an id")
	}
	if !player.HasBeenAdded || !player.IsReady {
		t.Fatalf("player not fully joined: %+v", player)
	}
	if player.Points != 0 {
		t.Fatalf("new player has %d points, want 0", player.Points)
	}
}

func TestInsertRejectsDuplicateName(t *testing.T) {
	store := NewPlayerStore(openTestDB(t))

	if _, err := store.Insert("mikkel", "green"); err != nil {
		t.Fatal(err)
	}

	// Two devices can race the same name past any pre-insert lookup; the
	// unique index is the backstop, and callers need the sentinel to map
	// the collision to a join-screen conflict.
	_, err := store.Insert("mikkel", "red")
	if err == nil {
		t.Fatal("duplicate name was accepted")
	}
	if !errors.Is(err, gorm.ErrDuplicatedKey) {
		t.Fatalf("duplicate insert error = %v, want gorm.ErrDuplicatedKey", err)
	}
}

func TestListOrdersByPointsDescending(t *testing.T) {
	store := NewPlayerStore(openTestDB(t))

	a, _ := store.Insert("a", "green")
	b, _ := store.Insert("b", "red")
	c, _ := store.Insert("c", "blue")
	store.Mutate(a.ID, map[string]interface{}{"points": 200})
	store.Mutate(b.ID, map[string]interface{}{"points": 900})
	store.Mutate(c.ID, map[string]interface{}{"points": 500})

	players, err := store.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(players) != 3 {
		t.Fatalf("got %d players, want 3", len(players))
	}
	for i, want := range []string{"b", "c", "a"} {
		if players[i].Name != want {
			t.Fatalf("position %d = %s, want %s", i, players[i].Name, want)
		}
	}
}

func TestSubscribeDeliversSnapshotsOnEveryWrite(t *testing.T) {
	store := NewPlayerStore(openTestDB(t))

	ch, cancel := store.Subscribe(nil)
	defer cancel()

	// Seed snapshot of the current (empty) table.
	if snap := awaitSnapshot(t, ch); len(snap) != 0 {
		t.Fatalf("seed snapshot has %d players, want 0", len(snap))
	}

	player, err := store.Insert("mikkel", "green")
	if err != nil {
		t.Fatal(err)
	}
	if snap := awaitSnapshot(t, ch); len(snap) != 1 || snap[0].Name != "mikkel" {
		t.Fatalf("insert snapshot = %+v", snap)
	}

	if err := store.Mutate(player.ID, map[string]interface{}{"points": 750}); err != nil {
		t.Fatal(err)
	}
	if snap := awaitSnapshot(t, ch); snap[0].Points != 750 {
		t.Fatalf("update snapshot points = %d, want 750", snap[0].Points)
	}

	if err := store.Delete(player.ID); err != nil {
		t.Fatal(err)
	}
	if snap := awaitSnapshot(t, ch); len(snap) != 0 {
		t.Fatalf("delete snapshot has %d players, want 0", len(snap))
	}
}

func TestSubscribeCoalescesWhenConsumerIsSlow(t *testing.T) {
	store := NewPlayerStore(openTestDB(t))

	ch, cancel := store.Subscribe(nil)
	defer cancel()

	// Nobody reads while several writes land; the subscriber must end up
	// with the latest snapshot, not a backlog of stale ones.
	a, _ := store.Insert("a", "green")
	store.Insert("b", "red")
	store.Mutate(a.ID, map[string]interface{}{"points": 100})

	deadline := time.After(time.Second)
	for {
		snap := awaitSnapshot(t, ch)
		if len(snap) == 2 {
			for _, p := range snap {
				if p.Name == "a" && p.Points == 100 {
					return
				}
			}
		}
		select {
		case <-deadline:
			t.Fatal("latest snapshot never arrived")
		default:
		}
	}
}

func TestSubscribeFilterScopesSnapshot(t *testing.T) {
	store := NewPlayerStore(openTestDB(t))

	target, _ := store.Insert("watched", "green")
	store.Insert("other", "red")

	ch, cancel := store.Subscribe(func(p *models.Player) bool { return p.ID == target.ID })
	defer cancel()

	snap := awaitSnapshot(t, ch)
	if len(snap) != 1 || snap[0].ID != target.ID {
		t.Fatalf("filtered snapshot = %+v, want only %s", snap, target.ID)
	}
}

func TestMarkPresentPairsFlagWithRound(t *testing.T) {
	store := NewPlayerStore(openTestDB(t))

	player, _ := store.Insert("mikkel", "green")
	if err := store.MarkPresent(player.ID, 3); err != nil {
		t.Fatal(err)
	}

	got, _ := store.Get(player.ID)
	if !got.PresentOn(3) {
		t.Fatal("player not present on round 3 after MarkPresent")
	}
	if got.PresentOn(2) || got.PresentOn(4) {
		t.Fatal("presence leaked onto other rounds")
	}
}

func TestClearPresenceIsIdempotent(t *testing.T) {
	store := NewPlayerStore(openTestDB(t))

	a, _ := store.Insert("a", "green")
	b, _ := store.Insert("b", "red")
	store.MarkPresent(a.ID, 1)
	store.MarkPresent(b.ID, 1)

	// Multiple replicas apply the same reset; both applications succeed
	// and the end state is identical.
	if err := store.ClearPresence(1); err != nil {
		t.Fatal(err)
	}
	if err := store.ClearPresence(1); err != nil {
		t.Fatal(err)
	}

	for _, id := range []string{a.ID, b.ID} {
		got, _ := store.Get(id)
		if got.OnScoreboard {
			t.Fatalf("player %s still on scoreboard after reset", id)
		}
	}
}

func TestDeleteByNameThenIdentityNoLongerResolves(t *testing.T) {
	store := NewPlayerStore(openTestDB(t))

	player, _ := store.Insert("mikkel", "green")
	if err := store.DeleteByName("mikkel"); err != nil {
		t.Fatal(err)
	}

	if _, err := store.Get(player.ID); err == nil {
		t.Fatal("deleted player still resolves")
	}
}

func TestResetForNewGameZeroesEveryone(t *testing.T) {
	store := NewPlayerStore(openTestDB(t))

	a, _ := store.Insert("a", "green")
	store.Mutate(a.ID, map[string]interface{}{
		"points": 800, "previous_points": 500, "added_points": 300,
	})
	store.MarkPresent(a.ID, 4)

	if err := store.ResetForNewGame(); err != nil {
		t.Fatal(err)
	}

	got, _ := store.Get(a.ID)
	if got.Points != 0 || got.PreviousPoints != 0 || got.AddedPoints != 0 {
		t.Fatalf("scores not reset: %+v", got)
	}
	if got.OnScoreboard || got.CurrentQuestionID != 0 {
		t.Fatalf("presence not reset: %+v", got)
	}
}

func TestDeleteAllEmptiesTheTable(t *testing.T) {
	store := NewPlayerStore(openTestDB(t))

	store.Insert("a", "green")
	store.Insert("b", "red")

	if err := store.DeleteAll(); err != nil {
		t.Fatal(err)
	}

	players, _ := store.List()
	if len(players) != 0 {
		t.Fatalf("%d players remain after DeleteAll", len(players))
	}
}
