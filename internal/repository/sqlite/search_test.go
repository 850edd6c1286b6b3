package sqlite

import (
	"context"
	"testing"

	"github.com/sakif/snipvault/internal/model"
	"github.com/sakif/snipvault/internal/repository"
)

func TestSearchText_MatchesAllFields(t *testing.T) {
	db := newTestDB(t)
	user, coll := seedUser(t, db, "a@example.com")

	byTitle := seedSnippet(t, db, &model.Snippet{
		UserID: user.ID, CollectionID: coll.ID,
		Title: "Quicksort in Go", Code: "func qs() {}", Language: "go",
	})
	byDesc := seedSnippet(t, db, &model.Snippet{
		UserID: user.ID, CollectionID: coll.ID,
		Title: "Sorter", Description: "A quicksort variant", Code: "x", Language: "go",
	})
	byCode := seedSnippet(t, db, &model.Snippet{
		UserID: user.ID, CollectionID: coll.ID,
		Title: "Helper", Code: "quickSortInPlace(xs)", Language: "go",
	})
	byTag := seedSnippet(t, db, &model.Snippet{
		UserID: user.ID, CollectionID: coll.ID,
		Title: "Tagged", Code: "y", Language: "go", Tags: []string{"quicksort"},
	})
	seedSnippet(t, db, &model.Snippet{
		UserID: user.ID, CollectionID: coll.ID,
		Title: "Unrelated", Code: "z", Language: "go",
	})

	results, err := db.SearchText(context.Background(), repository.TextQuery{
		Query: "QUICKSORT",
		Scope: repository.Scope{UserID: user.ID},
	})
	if err != nil {
		t.Fatalf("SearchText() error = %v", err)
	}
	if len(results) != 4 {
		t.Fatalf("SearchText() returned %d results, want 4", len(results))
	}

	want := map[string]bool{byTitle.ID: true, byDesc.ID: true, byCode.ID: true, byTag.ID: true}
	for _, r := range results {
		if !want[r.ID] {
			t.Errorf("unexpected result %q", r.Title)
		}
	}
	// Owner search orders by most recently updated.
	if results[0].ID != byTag.ID {
		t.Errorf("first result = %q, want %q", results[0].Title, byTag.Title)
	}
}

func TestSearchText_EscapesLikeMetacharacters(t *testing.T) {
	db := newTestDB(t)
	user, coll := seedUser(t, db, "a@example.com")

	literal := seedSnippet(t, db, &model.Snippet{
		UserID: user.ID, CollectionID: coll.ID,
		Title: "uses 100% cpu", Code: "x", Language: "go",
	})
	seedSnippet(t, db, &model.Snippet{
		UserID: user.ID, CollectionID: coll.ID,
		Title: "uses 100x cpu", Code: "x", Language: "go",
	})

	results, err := db.SearchText(context.Background(), repository.TextQuery{
		Query: "100%",
		Scope: repository.Scope{UserID: user.ID},
	})
	if err != nil {
		t.Fatalf("SearchText() error = %v", err)
	}
	if len(results) != 1 || results[0].ID != literal.ID {
		t.Errorf("SearchText(%%) matched %d results, want only the literal one", len(results))
	}
}

func TestSearchText_ScopeIsolation(t *testing.T) {
	db := newTestDB(t)
	user, coll := seedUser(t, db, "a@example.com")
	other, otherColl := seedUser(t, db, "b@example.com")

	mine := seedSnippet(t, db, &model.Snippet{
		UserID: user.ID, CollectionID: coll.ID,
		Title: "fibonacci", Code: "x", Language: "go",
	})
	seedSnippet(t, db, &model.Snippet{
		UserID: other.ID, CollectionID: otherColl.ID,
		Title: "fibonacci too", Code: "y", Language: "go",
	})
	theirsPublic := seedSnippet(t, db, &model.Snippet{
		UserID: other.ID, CollectionID: otherColl.ID,
		Title: "fibonacci shared", Code: "z", Language: "go", IsPublic: true,
	})

	owned, err := db.SearchText(context.Background(), repository.TextQuery{
		Query: "fibonacci",
		Scope: repository.Scope{UserID: user.ID},
	})
	if err != nil {
		t.Fatalf("SearchText(owner) error = %v", err)
	}
	if len(owned) != 1 || owned[0].ID != mine.ID {
		t.Errorf("owner scope returned %d results, want only the caller's snippet", len(owned))
	}

	public, err := db.SearchText(context.Background(), repository.TextQuery{
		Query: "fibonacci",
		Scope: repository.Scope{PublicOnly: true},
	})
	if err != nil {
		t.Fatalf("SearchText(public) error = %v", err)
	}
	if len(public) != 1 || public[0].ID != theirsPublic.ID {
		t.Errorf("public scope returned %d results, want only the public snippet", len(public))
	}
}

func TestSearchText_Filters(t *testing.T) {
	db := newTestDB(t)
	user, coll := seedUser(t, db, "a@example.com")
	second := &model.Collection{UserID: user.ID, Name: "Scripts"}
	if err := db.CreateCollection(context.Background(), second); err != nil {
		t.Fatalf("CreateCollection() error = %v", err)
	}

	inDefault := seedSnippet(t, db, &model.Snippet{
		UserID: user.ID, CollectionID: coll.ID,
		Title: "parse json", Code: "x", Language: "go",
	})
	inScripts := seedSnippet(t, db, &model.Snippet{
		UserID: user.ID, CollectionID: second.ID,
		Title: "parse json quickly", Code: "y", Language: "python",
	})

	byColl, err := db.SearchText(context.Background(), repository.TextQuery{
		Query: "parse",
		Scope: repository.Scope{UserID: user.ID, CollectionID: second.ID},
	})
	if err != nil {
		t.Fatalf("SearchText(collection) error = %v", err)
	}
	if len(byColl) != 1 || byColl[0].ID != inScripts.ID {
		t.Errorf("collection filter returned %d results, want 1", len(byColl))
	}

	byLang, err := db.SearchText(context.Background(), repository.TextQuery{
		Query: "parse",
		Scope: repository.Scope{UserID: user.ID, Language: "go"},
	})
	if err != nil {
		t.Fatalf("SearchText(language) error = %v", err)
	}
	if len(byLang) != 1 || byLang[0].ID != inDefault.ID {
		t.Errorf("language filter returned %d results, want 1", len(byLang))
	}
}

func TestSearchSemantic_RanksBySimilarity(t *testing.T) {
	db := newTestDB(t)
	user, coll := seedUser(t, db, "a@example.com")

	exact := seedSnippet(t, db, &model.Snippet{
		UserID: user.ID, CollectionID: coll.ID,
		Title: "exact", Code: "x", Language: "go",
		Embedding: []float32{1, 0, 0},
	})
	near := seedSnippet(t, db, &model.Snippet{
		UserID: user.ID, CollectionID: coll.ID,
		Title: "close", Code: "y", Language: "go",
		Embedding: []float32{1, 1, 0},
	})
	far := seedSnippet(t, db, &model.Snippet{
		UserID: user.ID, CollectionID: coll.ID,
		Title: "far", Code: "z", Language: "go",
		Embedding: []float32{0, 0, 1},
	})
	// No embedding: never a candidate.
	seedSnippet(t, db, &model.Snippet{
		UserID: user.ID, CollectionID: coll.ID,
		Title: "unembedded", Code: "w", Language: "go",
	})

	results, err := db.SearchSemantic(context.Background(), repository.SemanticQuery{
		Vector: []float32{1, 0, 0},
		Scope:  repository.Scope{UserID: user.ID},
	})
	if err != nil {
		t.Fatalf("SearchSemantic() error = %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("SearchSemantic() returned %d results, want 3", len(results))
	}

	wantOrder := []string{exact.ID, near.ID, far.ID}
	for i, id := range wantOrder {
		if results[i].ID != id {
			t.Errorf("result[%d] = %q, want rank order exact > near > far", i, results[i].Title)
		}
	}

	if results[0].Similarity == nil || *results[0].Similarity < 0.99 {
		t.Errorf("top similarity = %v, want ~1.0", results[0].Similarity)
	}
	if results[2].Similarity == nil || *results[2].Similarity > 0.01 {
		t.Errorf("orthogonal similarity = %v, want ~0", results[2].Similarity)
	}
}

func TestSearchSemantic_Limit(t *testing.T) {
	db := newTestDB(t)
	user, coll := seedUser(t, db, "a@example.com")

	for i := 0; i < 5; i++ {
		seedSnippet(t, db, &model.Snippet{
			UserID: user.ID, CollectionID: coll.ID,
			Title: "vec", Code: "x", Language: "go",
			Embedding: []float32{1, float32(i)},
		})
	}

	results, err := db.SearchSemantic(context.Background(), repository.SemanticQuery{
		Vector: []float32{1, 0},
		Scope:  repository.Scope{UserID: user.ID},
		Limit:  2,
	})
	if err != nil {
		t.Fatalf("SearchSemantic() error = %v", err)
	}
	if len(results) != 2 {
		t.Errorf("SearchSemantic(limit=2) returned %d results, want 2", len(results))
	}
}

func TestSearchSemantic_PublicScopeCarriesAuthor(t *testing.T) {
	db := newTestDB(t)
	user, coll := seedUser(t, db, "a@example.com")

	seedSnippet(t, db, &model.Snippet{
		UserID: user.ID, CollectionID: coll.ID,
		Title: "shared", Code: "x", Language: "go", IsPublic: true,
		Embedding: []float32{1, 0},
	})
	seedSnippet(t, db, &model.Snippet{
		UserID: user.ID, CollectionID: coll.ID,
		Title: "private", Code: "y", Language: "go",
		Embedding: []float32{1, 0},
	})

	results, err := db.SearchSemantic(context.Background(), repository.SemanticQuery{
		Vector: []float32{1, 0},
		Scope:  repository.Scope{PublicOnly: true},
	})
	if err != nil {
		t.Fatalf("SearchSemantic() error = %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("public scope returned %d results, want 1", len(results))
	}
	if results[0].AuthorName != "Test User" {
		t.Errorf("AuthorName = %q, want %q", results[0].AuthorName, "Test User")
	}
}
