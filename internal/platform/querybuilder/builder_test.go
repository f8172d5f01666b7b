package querybuilder

import (
	"reflect"
	"testing"
)

func TestSelectBuilder(t *testing.T) {
	query, args, err := Select("id", "home_team").
		From("matches").
		Where(Eq("status", "FINISHED"), Eq("watched", true)).
		OrderBy("match_date DESC", "external_id ASC").
		Limit(10).
		ToSQL()
	if err != nil {
		t.Fatalf("build select query: %v", err)
	}

	wantQuery := "SELECT id, home_team FROM matches WHERE status = ? AND watched = ? ORDER BY match_date DESC, external_id ASC LIMIT 10"
	if query != wantQuery {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", wantQuery, query)
	}
	if len(args) != 2 || args[0] != "FINISHED" || args[1] != true {
		t.Fatalf("unexpected args: %+v", args)
	}
}

func TestSelectBuilder_ContainsFoldEscapesWildcards(t *testing.T) {
	query, args, err := Select("*").
		From("matches").
		Where(ContainsFold("50%_off", "home_team", "away_team"), In("status", []any{"LIVE", "FINISHED"})).
		ToSQL()
	if err != nil {
		t.Fatalf("build select query: %v", err)
	}

	wantQuery := `SELECT * FROM matches WHERE (home_team LIKE ? ESCAPE '\' OR away_team LIKE ? ESCAPE '\') AND status IN (?, ?)`
	if query != wantQuery {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", wantQuery, query)
	}
	wantArgs := []any{`%50\%\_off%`, `%50\%\_off%`, "LIVE", "FINISHED"}
	if !reflect.DeepEqual(args, wantArgs) {
		t.Fatalf("unexpected args: %+v", args)
	}
}

func TestInsertBuilder(t *testing.T) {
	query, args, err := InsertInto("matches").
		Columns("external_id", "home_team").
		Values(int64(1), "Santos").
		Suffix("ON CONFLICT(external_id) DO NOTHING").
		ToSQL()
	if err != nil {
		t.Fatalf("build insert query: %v", err)
	}

	wantQuery := "INSERT INTO matches (external_id, home_team) VALUES (?, ?) ON CONFLICT(external_id) DO NOTHING"
	if query != wantQuery {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", wantQuery, query)
	}
	if len(args) != 2 || args[0] != int64(1) || args[1] != "Santos" {
		t.Fatalf("unexpected args: %+v", args)
	}
}

func TestInsertBuilder_ValueCountMismatch(t *testing.T) {
	if _, _, err := InsertInto("matches").Columns("a", "b").Values(1).ToSQL(); err == nil {
		t.Fatalf("expected error for mismatched values")
	}
}

func TestUpdateBuilder(t *testing.T) {
	query, args, err := Update("matches").
		Set("user_note", "great game").
		SetExpr("updated_at", "COALESCE(?, updated_at)", "2024-05-01").
		Where(Eq("external_id", int64(7))).
		Suffix("RETURNING id").
		ToSQL()
	if err != nil {
		t.Fatalf("build update query: %v", err)
	}

	wantQuery := "UPDATE matches SET user_note = ?, updated_at = COALESCE(?, updated_at) WHERE external_id = ? RETURNING id"
	if query != wantQuery {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", wantQuery, query)
	}
	want := []any{"great game", "2024-05-01", int64(7)}
	if !reflect.DeepEqual(args, want) {
		t.Fatalf("unexpected args: %+v", args)
	}
}

type sampleModel struct {
	ID       int64  `db:"id,readonly"`
	External int64  `db:"external_id"`
	Note     string `db:"user_note"`
	Ignored  string `db:"-"`
	hidden   string `db:"hidden"`
}

func TestInsertModel_SkipsReadonlyColumns(t *testing.T) {
	query, args, err := InsertModel("matches", sampleModel{ID: 9, External: 3, Note: "n", hidden: "x"}, "RETURNING id")
	if err != nil {
		t.Fatalf("build insert model: %v", err)
	}

	wantQuery := "INSERT INTO matches (external_id, user_note) VALUES (?, ?) RETURNING id"
	if query != wantQuery {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", wantQuery, query)
	}
	if len(args) != 2 || args[0] != int64(3) || args[1] != "n" {
		t.Fatalf("unexpected args: %+v", args)
	}

	cols, err := Columns(&sampleModel{})
	if err != nil {
		t.Fatalf("columns: %v", err)
	}
	if !reflect.DeepEqual(cols, []string{"id", "external_id", "user_note"}) {
		t.Fatalf("unexpected columns: %v", cols)
	}
}
