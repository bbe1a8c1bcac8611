package condition

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/stepflow/internal/model"
)

// snapshot builds a Lookup from a fixed status table; absent ids are
// reported as undecided.
func snapshot(statuses map[string]model.Status) Lookup {
	return func(stepID string) (model.Status, bool) {
		s, ok := statuses[stepID]
		if !ok {
			return model.Pending, false
		}
		return s, s.Terminal()
	}
}

func TestParse(t *testing.T) {
	t.Run("single atom", func(t *testing.T) {
		expr, err := Parse("outcome_build == success")
		require.NoError(t, err)
		assert.Equal(t, []string{"build"}, expr.References())
		assert.Equal(t, "outcome_build == success", expr.String())
	})

	t.Run("conjunction", func(t *testing.T) {
		expr, err := Parse("outcome_a == success and outcome_b == failed")
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b"}, expr.References())
	})

	t.Run("negated atom", func(t *testing.T) {
		expr, err := Parse("outcome_a != failed")
		require.NoError(t, err)
		assert.Equal(t, []string{"a"}, expr.References())
	})

	t.Run("quoted outcome", func(t *testing.T) {
		_, err := Parse(`outcome_a == "success"`)
		require.NoError(t, err)
	})

	t.Run("error cases", func(t *testing.T) {
		_, err := Parse("outcome_a equals success")
		assert.ErrorContains(t, err, "no comparison operator")

		_, err = Parse("status_a == success")
		assert.ErrorContains(t, err, "must be outcome_<step_id>")

		_, err = Parse("outcome_ == success")
		assert.ErrorContains(t, err, "must be outcome_<step_id>")

		_, err = Parse("outcome_a == running")
		assert.ErrorContains(t, err, "unknown outcome")

		var parseErr *ParseError
		_, err = Parse("nope")
		require.ErrorAs(t, err, &parseErr)
	})
}

func TestEval(t *testing.T) {
	t.Run("true when outcome matches", func(t *testing.T) {
		expr, err := Parse("outcome_a == success")
		require.NoError(t, err)
		got := expr.Eval(snapshot(map[string]model.Status{"a": model.Success}))
		assert.Equal(t, True, got)
	})

	t.Run("false when outcome differs", func(t *testing.T) {
		expr, err := Parse("outcome_a == success")
		require.NoError(t, err)
		got := expr.Eval(snapshot(map[string]model.Status{"a": model.Failed}))
		assert.Equal(t, False, got)
	})

	t.Run("deferred when referenced step not terminal", func(t *testing.T) {
		expr, err := Parse("outcome_a == success")
		require.NoError(t, err)
		got := expr.Eval(snapshot(map[string]model.Status{"a": model.Running}))
		assert.Equal(t, Deferred, got)
	})

	t.Run("deferred wins over a false atom", func(t *testing.T) {
		expr, err := Parse("outcome_a == success and outcome_b == success")
		require.NoError(t, err)
		got := expr.Eval(snapshot(map[string]model.Status{
			"a": model.Failed,  // would decide False
			"b": model.Pending, // undecided
		}))
		assert.Equal(t, Deferred, got)
	})

	t.Run("conjunction needs every atom", func(t *testing.T) {
		expr, err := Parse("outcome_a == success and outcome_b == skipped")
		require.NoError(t, err)

		got := expr.Eval(snapshot(map[string]model.Status{"a": model.Success, "b": model.Skipped}))
		assert.Equal(t, True, got)

		got = expr.Eval(snapshot(map[string]model.Status{"a": model.Success, "b": model.Success}))
		assert.Equal(t, False, got)
	})

	t.Run("negation", func(t *testing.T) {
		expr, err := Parse("outcome_a != failed")
		require.NoError(t, err)

		assert.Equal(t, True, expr.Eval(snapshot(map[string]model.Status{"a": model.Success})))
		assert.Equal(t, False, expr.Eval(snapshot(map[string]model.Status{"a": model.Failed})))
	})

	t.Run("referential transparency", func(t *testing.T) {
		expr, err := Parse("outcome_a == success")
		require.NoError(t, err)
		snap := snapshot(map[string]model.Status{"a": model.Success})
		for i := 0; i < 5; i++ {
			assert.Equal(t, True, expr.Eval(snap))
		}
	})
}
