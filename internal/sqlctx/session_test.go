package sqlctx

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSession_RegisterViewAndQuery(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, Config{})
	require.NoError(t, err)
	defer s.Close()

	err = s.RegisterView(ctx, KindSourceTable, "events", "SELECT 1 AS id, 'a' AS name")
	require.NoError(t, err)

	has, err := s.HasTable(ctx, "events")
	require.NoError(t, err)
	require.True(t, has)

	rows, err := s.Query(ctx, "SELECT id, name FROM events")
	require.NoError(t, err)
	defer rows.Close()

	require.True(t, rows.Next())
	var id int
	var name string
	require.NoError(t, rows.Scan(&id, &name))
	require.Equal(t, 1, id)
	require.Equal(t, "a", name)
}

func TestSession_DeregisterAllTearsDownInLIFOOrder(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, Config{})
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.RegisterView(ctx, KindSourceTable, "events", "SELECT 1 AS id"))
	require.NoError(t, s.RegisterTableAs(ctx, KindStageTable, "totals", "SELECT count(*) AS n FROM events"))

	regs := s.Registrations()
	require.Len(t, regs, 2)
	require.Equal(t, "events", regs[0].Name)
	require.Equal(t, "totals", regs[1].Name)

	errs := s.DeregisterAll(ctx)
	require.Empty(t, errs)
	require.Empty(t, s.Registrations())

	has, err := s.HasTable(ctx, "totals")
	require.NoError(t, err)
	require.False(t, has)
}

func TestSession_DeregisterIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, Config{})
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Deregister(ctx, "never_registered"))
}

func TestSession_MarkRegisteredDoesNotDuplicate(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, Config{})
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.RegisterView(ctx, KindSourceTable, "events", "SELECT 1 AS id"))
	s.MarkRegistered(KindSourceTable, "events")

	require.Len(t, s.Registrations(), 1)
}
