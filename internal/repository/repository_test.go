package repository

import (
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/gabriel/media-catalog/internal/database"
	"github.com/gabriel/media-catalog/internal/models"
)

func setupRepoDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := database.Open(filepath.Join(t.TempDir(), "repo.sqlite"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := database.ApplyMigrations(db, ""); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	return db
}

func createUser(t *testing.T, repo *UserRepository, email, name string) *models.User {
	t.Helper()
	user, err := repo.Create(email, name, "hash", "")
	if err != nil {
		t.Fatalf("create user %s: %v", email, err)
	}
	return user
}

func strPtr(value string) *string { return &value }
func intPtr(value int) *int       { return &value }

func TestUserRepositoryCreateAndSearch(t *testing.T) {
	users := NewUserRepository(setupRepoDB(t))

	alice := createUser(t, users, " Alice@Example.com ", "Alice")
	if alice.Email != "alice@example.com" || alice.Role != models.RoleUser {
		t.Fatalf("unexpected user: %+v", alice)
	}
	createUser(t, users, "albert@example.com", "Albert")
	createUser(t, users, "bob@example.com", "Bob")
	createUser(t, users, "pct@example.com", "al%weird")

	if _, err := users.Create("ALICE@example.com", "Dup", "hash", ""); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}

	found, err := users.Search("AL", alice.ID, 10)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(found) != 2 {
		t.Fatalf("expected Albert and al%%weird, got %+v", found)
	}
	for _, user := range found {
		if user.ID == alice.ID {
			t.Fatalf("search must exclude the caller")
		}
	}

	found, err = users.Search("al%", "", 10)
	if err != nil {
		t.Fatalf("search literal percent: %v", err)
	}
	if len(found) != 1 || found[0].DisplayName != "al%weird" {
		t.Fatalf("expected literal %% match only, got %+v", found)
	}

	missing, err := users.GetByID("nope")
	if err != nil || missing != nil {
		t.Fatalf("expected (nil, nil) for missing user, got %v %v", missing, err)
	}

	changed, err := users.SetRole(alice.ID, models.RoleAdmin)
	if err != nil || !changed {
		t.Fatalf("set role: %v %v", changed, err)
	}
	changed, err = users.SetRole(alice.ID, models.RoleAdmin)
	if err != nil || !changed {
		t.Fatalf("expected repeated set role to match the user: %v %v", changed, err)
	}
	changed, err = users.SetRole("nope", models.RoleAdmin)
	if err != nil || changed {
		t.Fatalf("expected missing user to report no match: %v %v", changed, err)
	}
}

func TestFavoriteRepositoryIsIdempotentAndPaginates(t *testing.T) {
	db := setupRepoDB(t)
	user := createUser(t, NewUserRepository(db), "fav@example.com", "Fav")
	favorites := NewFavoriteRepository(db)

	for id := int64(1); id <= 3; id++ {
		if _, err := favorites.Add(user.ID, models.MediaRef{MediaType: models.MediaTypeMovie, TMDBID: id, Title: "Movie"}); err != nil {
			t.Fatalf("add favorite %d: %v", id, err)
		}
	}
	updated, err := favorites.Add(user.ID, models.MediaRef{MediaType: models.MediaTypeMovie, TMDBID: 1, Title: "Renamed", PosterPath: strPtr("/p.jpg")})
	if err != nil {
		t.Fatalf("re-add favorite: %v", err)
	}
	if updated.Title != "Renamed" || updated.PosterPath == nil {
		t.Fatalf("expected display fields refreshed, got %+v", updated)
	}
	if _, err := favorites.Add(user.ID, models.MediaRef{MediaType: models.MediaTypeTV, TMDBID: 1, Title: "Show"}); err != nil {
		t.Fatalf("add tv favorite: %v", err)
	}

	page, err := favorites.List(user.ID, models.MediaTypeMovie, 2, 0)
	if err != nil {
		t.Fatalf("list favorites: %v", err)
	}
	if page.Total != 3 || len(page.Items) != 2 || !page.HasMore {
		t.Fatalf("unexpected first page: %+v", page)
	}
	page, err = favorites.List(user.ID, models.MediaTypeMovie, 2, 2)
	if err != nil {
		t.Fatalf("list favorites page 2: %v", err)
	}
	if len(page.Items) != 1 || page.HasMore {
		t.Fatalf("unexpected second page: %+v", page)
	}

	removed, err := favorites.Remove(user.ID, models.MediaTypeTV, 1)
	if err != nil || !removed {
		t.Fatalf("remove favorite: %v %v", removed, err)
	}
	removed, err = favorites.Remove(user.ID, models.MediaTypeTV, 1)
	if err != nil || removed {
		t.Fatalf("expected second remove to report false: %v %v", removed, err)
	}
}

func TestCollectionRepositoryMaintainsItemCount(t *testing.T) {
	db := setupRepoDB(t)
	userRepo := NewUserRepository(db)
	owner := createUser(t, userRepo, "owner@example.com", "Owner")
	other := createUser(t, userRepo, "other@example.com", "Other")
	collections := NewCollectionRepository(db)

	collection, err := collections.Create(owner.ID, " Weekend ", nil, false)
	if err != nil {
		t.Fatalf("create collection: %v", err)
	}
	if collection.Name != "Weekend" || collection.ItemCount != 0 {
		t.Fatalf("unexpected collection: %+v", collection)
	}
	if _, err := collections.Create(owner.ID, "Weekend", nil, true); !errors.Is(err, ErrDuplicateCollection) {
		t.Fatalf("expected ErrDuplicateCollection, got %v", err)
	}

	ref := models.MediaRef{MediaType: models.MediaTypeTV, TMDBID: 1399, Title: "Show"}
	if _, err := collections.AddItem(owner.ID, collection.ID, ref); err != nil {
		t.Fatalf("add item: %v", err)
	}
	if _, err := collections.AddItem(owner.ID, collection.ID, ref); !errors.Is(err, ErrDuplicateItem) {
		t.Fatalf("expected ErrDuplicateItem, got %v", err)
	}
	if _, err := collections.AddItem(owner.ID, collection.ID, models.MediaRef{MediaType: models.MediaTypeMovie, TMDBID: 603, Title: "Movie"}); err != nil {
		t.Fatalf("add second item: %v", err)
	}

	item, err := collections.AddItem(other.ID, collection.ID, models.MediaRef{MediaType: models.MediaTypeMovie, TMDBID: 1, Title: "X"})
	if err != nil || item != nil {
		t.Fatalf("expected non-owner add to return (nil, nil), got %v %v", item, err)
	}

	reloaded, err := collections.Get(owner.ID, collection.ID)
	if err != nil {
		t.Fatalf("get collection: %v", err)
	}
	if reloaded.ItemCount != 2 {
		t.Fatalf("expected item count 2, got %d", reloaded.ItemCount)
	}

	hidden, err := collections.Get(other.ID, collection.ID)
	if err != nil || hidden != nil {
		t.Fatalf("private collection must be hidden from others: %v %v", hidden, err)
	}

	removed, err := collections.RemoveItem(owner.ID, collection.ID, models.MediaTypeTV, 1399)
	if err != nil || !removed {
		t.Fatalf("remove item: %v %v", removed, err)
	}
	removed, err = collections.RemoveItem(owner.ID, collection.ID, models.MediaTypeTV, 1399)
	if err != nil || removed {
		t.Fatalf("expected second remove to report false: %v %v", removed, err)
	}

	reloaded, err = collections.Get(owner.ID, collection.ID)
	if err != nil {
		t.Fatalf("get collection: %v", err)
	}
	if reloaded.ItemCount != 1 {
		t.Fatalf("expected item count 1, got %d", reloaded.ItemCount)
	}

	containing, err := collections.ListContaining(owner.ID, models.MediaTypeMovie, 603)
	if err != nil || len(containing) != 1 || containing[0] != collection.ID {
		t.Fatalf("list containing: %v %v", containing, err)
	}

	publicList, err := collections.List(owner.ID, other.ID)
	if err != nil || len(publicList) != 0 {
		t.Fatalf("expected no public collections, got %v %v", publicList, err)
	}

	deleted, err := collections.Delete(owner.ID, collection.ID)
	if err != nil || !deleted {
		t.Fatalf("delete collection: %v %v", deleted, err)
	}
	page, err := collections.ListItems(collection.ID, 10, 0)
	if err != nil || page.Total != 0 {
		t.Fatalf("expected items cascaded, got %+v %v", page, err)
	}
}

func TestReviewRepositoryUpsertAndSummary(t *testing.T) {
	db := setupRepoDB(t)
	userRepo := NewUserRepository(db)
	alice := createUser(t, userRepo, "a@example.com", "Alice")
	bob := createUser(t, userRepo, "b@example.com", "Bob")
	reviews := NewReviewRepository(db)

	first, err := reviews.Upsert(alice.ID, models.MediaTypeMovie, 603, 7.5, strPtr(" great "))
	if err != nil {
		t.Fatalf("upsert review: %v", err)
	}
	if first.ID != alice.ID+"_movie_603" || first.UserName != "Alice" || *first.Body != "great" {
		t.Fatalf("unexpected review: %+v", first)
	}

	second, err := reviews.Upsert(alice.ID, models.MediaTypeMovie, 603, 9, nil)
	if err != nil {
		t.Fatalf("re-upsert review: %v", err)
	}
	if second.ID != first.ID || second.Rating != 9 || second.Body != nil {
		t.Fatalf("expected review replaced in place, got %+v", second)
	}

	if _, err := reviews.Upsert(bob.ID, models.MediaTypeMovie, 603, 6, nil); err != nil {
		t.Fatalf("bob review: %v", err)
	}

	summary, err := reviews.Summary(models.MediaTypeMovie, 603)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if summary.Count != 2 || summary.Average != 7.5 {
		t.Fatalf("unexpected summary: %+v", summary)
	}

	page, listed, err := reviews.ListForTitle(models.MediaTypeMovie, 603, 1, 0)
	if err != nil {
		t.Fatalf("list for title: %v", err)
	}
	if page.Total != 2 || len(page.Items) != 1 || !page.HasMore {
		t.Fatalf("unexpected page: %+v", page)
	}
	if listed != summary {
		t.Fatalf("expected list summary %+v, got %+v", summary, listed)
	}

	deleted, err := reviews.Delete(bob.ID, models.MediaTypeMovie, 603)
	if err != nil || !deleted {
		t.Fatalf("delete review: %v %v", deleted, err)
	}
	summary, err = reviews.Summary(models.MediaTypeMovie, 603)
	if err != nil || summary.Count != 1 || summary.Average != 9 {
		t.Fatalf("unexpected summary after delete: %+v %v", summary, err)
	}

	empty, err := reviews.Summary(models.MediaTypeTV, 1)
	if err != nil || empty.Count != 0 || empty.Average != 0 {
		t.Fatalf("expected empty summary, got %+v %v", empty, err)
	}
}

func TestWatchedRepositoryProgress(t *testing.T) {
	db := setupRepoDB(t)
	user := createUser(t, NewUserRepository(db), "w@example.com", "Watcher")
	watched := NewWatchedRepository(db)

	item, err := watched.Mark(user.ID, 1399, 1, 1)
	if err != nil {
		t.Fatalf("mark: %v", err)
	}
	if item.ID != user.ID+"_1399_s1_e1" {
		t.Fatalf("unexpected watched id %q", item.ID)
	}
	if _, err := watched.Mark(user.ID, 1399, 1, 1); err != nil {
		t.Fatalf("mark twice: %v", err)
	}

	added, err := watched.MarkSeason(user.ID, 1399, 1, []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10})
	if err != nil {
		t.Fatalf("mark season: %v", err)
	}
	if added != 9 {
		t.Fatalf("expected 9 new episodes, got %d", added)
	}
	if _, err := watched.Mark(user.ID, 1399, 2, 3); err != nil {
		t.Fatalf("mark s2: %v", err)
	}

	progress, err := watched.Progress(user.ID, 1399)
	if err != nil {
		t.Fatalf("progress: %v", err)
	}
	if len(progress) != 2 || progress[0].Watched != 10 || progress[1].Watched != 1 {
		t.Fatalf("unexpected progress: %+v", progress)
	}

	removed, err := watched.Unmark(user.ID, 1399, 2, 3)
	if err != nil || !removed {
		t.Fatalf("unmark: %v %v", removed, err)
	}
	cleared, err := watched.UnmarkSeason(user.ID, 1399, 1)
	if err != nil || cleared != 10 {
		t.Fatalf("unmark season: %v %v", cleared, err)
	}

	episodes, err := watched.ListForSeries(user.ID, 1399)
	if err != nil || len(episodes) != 0 {
		t.Fatalf("expected nothing left, got %v %v", episodes, err)
	}
}

func TestLinkRepositoryMergeAndDelete(t *testing.T) {
	links := NewLinkRepository(setupRepoDB(t))
	target := EpisodeTarget{MediaType: models.MediaTypeTV, TMDBID: 1399, Season: intPtr(1), Episode: intPtr(2)}

	result, err := links.AddLinks(target, []LinkInput{
		{URL: "https://a.example/1", Quality: strPtr("720p")},
		{URL: "https://b.example/1", Provider: strPtr("voe.sx")},
		{URL: "  "},
	}, "admin")
	if err != nil {
		t.Fatalf("add links: %v", err)
	}
	if result.Added != 2 || result.Updated != 0 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if result.Episode.ID != "1399_s1_e2" || len(result.Episode.Links) != 2 {
		t.Fatalf("unexpected episode: %+v", result.Episode)
	}

	result, err = links.AddLinks(target, []LinkInput{{URL: "https://a.example/1", Quality: strPtr("1080p"), Language: strPtr("PL")}}, "admin")
	if err != nil {
		t.Fatalf("merge links: %v", err)
	}
	if result.Added != 0 || result.Updated != 1 || len(result.Episode.Links) != 2 {
		t.Fatalf("expected URL merge, got %+v", result)
	}
	var merged models.StreamingLink
	for _, link := range result.Episode.Links {
		if link.URL == "https://a.example/1" {
			merged = link
		}
	}
	if merged.Quality == nil || *merged.Quality != "1080p" || merged.Language == nil || *merged.Language != "PL" {
		t.Fatalf("unexpected merged link: %+v", merged)
	}

	movie, err := links.AddLinks(EpisodeTarget{MediaType: models.MediaTypeMovie, TMDBID: 603, Season: intPtr(9)}, []LinkInput{{URL: "https://m.example"}}, "admin")
	if err != nil {
		t.Fatalf("add movie link: %v", err)
	}
	if movie.Episode.ID != "603" || movie.Episode.Season != nil {
		t.Fatalf("unexpected movie document: %+v", movie.Episode)
	}

	series, err := links.ListEpisodesWithLinks(1399, nil)
	if err != nil || len(series) != 1 || len(series[0].Links) != 2 {
		t.Fatalf("list episodes: %+v %v", series, err)
	}

	existed, documentRemoved, err := links.DeleteLink(series[0].Links[0].ID)
	if err != nil || !existed || documentRemoved {
		t.Fatalf("delete first link: %v %v %v", existed, documentRemoved, err)
	}
	existed, documentRemoved, err = links.DeleteLink(series[0].Links[1].ID)
	if err != nil || !existed || !documentRemoved {
		t.Fatalf("delete last link: %v %v %v", existed, documentRemoved, err)
	}

	episode, err := links.GetEpisode(target)
	if err != nil || episode != nil {
		t.Fatalf("expected episode document removed, got %+v %v", episode, err)
	}

	existed, _, err = links.DeleteLink("missing")
	if err != nil || existed {
		t.Fatalf("expected missing link to report false: %v %v", existed, err)
	}

	empty, err := links.AddLinks(target, []LinkInput{{URL: ""}}, "admin")
	if err != nil || empty.Episode != nil {
		t.Fatalf("expected no document for an empty import, got %+v %v", empty, err)
	}
}

func TestFriendRepositoryTransitions(t *testing.T) {
	db := setupRepoDB(t)
	userRepo := NewUserRepository(db)
	alice := createUser(t, userRepo, "a@example.com", "Alice")
	bob := createUser(t, userRepo, "b@example.com", "Bob")
	carol := createUser(t, userRepo, "c@example.com", "Carol")
	friends := NewFriendRepository(db)

	if _, err := friends.Send(alice.ID, alice.ID); !errors.Is(err, ErrSelfRequest) {
		t.Fatalf("expected ErrSelfRequest, got %v", err)
	}
	if _, err := friends.Send(alice.ID, "ghost"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}

	request, err := friends.Send(alice.ID, bob.ID)
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if request.Status != models.FriendRequestPending || request.FromName != "Alice" || request.ToName != "Bob" {
		t.Fatalf("unexpected request: %+v", request)
	}
	if _, err := friends.Send(alice.ID, bob.ID); !errors.Is(err, ErrRequestPending) {
		t.Fatalf("expected ErrRequestPending, got %v", err)
	}

	if _, err := friends.Accept(request.ID, alice.ID); !errors.Is(err, ErrRequestForbidden) {
		t.Fatalf("sender must not accept, got %v", err)
	}
	if _, err := friends.Cancel(request.ID, bob.ID); !errors.Is(err, ErrRequestForbidden) {
		t.Fatalf("recipient must not cancel, got %v", err)
	}

	incoming, err := friends.ListIncoming(bob.ID)
	if err != nil || len(incoming) != 1 {
		t.Fatalf("list incoming: %v %v", incoming, err)
	}

	accepted, err := friends.Accept(request.ID, bob.ID)
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if accepted.Status != models.FriendRequestAccepted || accepted.RespondedAt == nil {
		t.Fatalf("unexpected accepted request: %+v", accepted)
	}
	if _, err := friends.Decline(request.ID, bob.ID); !errors.Is(err, ErrRequestResolved) {
		t.Fatalf("expected ErrRequestResolved, got %v", err)
	}
	if _, err := friends.Send(bob.ID, alice.ID); !errors.Is(err, ErrAlreadyFriends) {
		t.Fatalf("expected ErrAlreadyFriends, got %v", err)
	}

	for _, id := range []string{alice.ID, bob.ID} {
		list, err := friends.ListFriends(id)
		if err != nil || len(list) != 1 {
			t.Fatalf("expected one friend for %s, got %v %v", id, list, err)
		}
	}

	pending, err := friends.Send(carol.ID, alice.ID)
	if err != nil {
		t.Fatalf("carol send: %v", err)
	}
	autoAccepted, err := friends.Send(alice.ID, carol.ID)
	if err != nil {
		t.Fatalf("reverse send: %v", err)
	}
	if autoAccepted.ID != pending.ID || autoAccepted.Status != models.FriendRequestAccepted {
		t.Fatalf("expected reverse pending request to be accepted, got %+v", autoAccepted)
	}

	removed, err := friends.RemoveFriend(bob.ID, alice.ID)
	if err != nil || !removed {
		t.Fatalf("remove friend: %v %v", removed, err)
	}
	stillFriends, err := friends.AreFriends(alice.ID, bob.ID)
	if err != nil || stillFriends {
		t.Fatalf("friendship must be removed both ways: %v %v", stillFriends, err)
	}

	declined, err := friends.Send(bob.ID, carol.ID)
	if err != nil {
		t.Fatalf("bob send: %v", err)
	}
	cancelled, err := friends.Cancel(declined.ID, bob.ID)
	if err != nil || cancelled.Status != models.FriendRequestCancelled {
		t.Fatalf("cancel: %+v %v", cancelled, err)
	}
	outgoing, err := friends.ListOutgoing(bob.ID)
	if err != nil || len(outgoing) != 0 {
		t.Fatalf("expected no outgoing requests, got %v %v", outgoing, err)
	}
}

func TestSeriesProgressRepository(t *testing.T) {
	db := setupRepoDB(t)
	user := createUser(t, NewUserRepository(db), "s@example.com", "Series")
	if _, err := NewFavoriteRepository(db).Add(user.ID, models.MediaRef{MediaType: models.MediaTypeTV, TMDBID: 1399, Title: "Show"}); err != nil {
		t.Fatalf("add favorite: %v", err)
	}
	if _, err := NewFavoriteRepository(db).Add(user.ID, models.MediaRef{MediaType: models.MediaTypeMovie, TMDBID: 603, Title: "Movie"}); err != nil {
		t.Fatalf("add movie favorite: %v", err)
	}
	collection, err := NewCollectionRepository(db).Create(user.ID, "Shows", nil, false)
	if err != nil {
		t.Fatalf("create collection: %v", err)
	}
	if _, err := NewCollectionRepository(db).AddItem(user.ID, collection.ID, models.MediaRef{MediaType: models.MediaTypeTV, TMDBID: 1399, Title: "Show"}); err != nil {
		t.Fatalf("add item: %v", err)
	}
	if _, err := NewCollectionRepository(db).AddItem(user.ID, collection.ID, models.MediaRef{MediaType: models.MediaTypeTV, TMDBID: 66732, Title: "Other"}); err != nil {
		t.Fatalf("add item: %v", err)
	}

	progressRepo := NewSeriesProgressRepository(db)
	tracked, err := progressRepo.ListTrackedSeries()
	if err != nil {
		t.Fatalf("list tracked: %v", err)
	}
	if len(tracked) != 2 || tracked[0].TMDBID != 1399 || tracked[1].TMDBID != 66732 {
		t.Fatalf("unexpected tracked series: %+v", tracked)
	}

	previous, err := progressRepo.UpsertProgress(models.SeriesProgress{TMDBID: 1399, Name: "Show", NumberOfSeasons: 1, NumberOfEpisodes: 10})
	if err != nil || previous != nil {
		t.Fatalf("first upsert: %v %v", previous, err)
	}
	previous, err = progressRepo.UpsertProgress(models.SeriesProgress{TMDBID: 1399, Name: "Show", NumberOfSeasons: 2, NumberOfEpisodes: 11})
	if err != nil || previous == nil || previous.NumberOfEpisodes != 10 {
		t.Fatalf("second upsert: %+v %v", previous, err)
	}

	current, err := progressRepo.Get(1399)
	if err != nil || current.NumberOfEpisodes != 11 || current.ChangedAt == nil {
		t.Fatalf("unexpected progress: %+v %v", current, err)
	}
}
