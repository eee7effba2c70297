package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindOf(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{fmt.Errorf("%w: missing item", ErrValidation), KindValidation},
		{fmt.Errorf("%w: booking 4", ErrNotFound), KindNotFound},
		{fmt.Errorf("%w: not the renter", ErrForbidden), KindForbidden},
		{fmt.Errorf("%w: cancelled", ErrInvalidState), KindInvalidState},
		{fmt.Errorf("%w: item 9", ErrUnavailable), KindUnavailable},
		{fmt.Errorf("%w: return for 3", ErrDuplicate), KindDuplicate},
		{errors.New("disk full"), KindInternal},
		{fmt.Errorf("outer: %w", fmt.Errorf("%w", ErrNotFound)), KindNotFound},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, KindOf(tc.err), tc.err.Error())
	}
	assert.Equal(t, "", KindOf(nil))
}

func TestNewPrincipal(t *testing.T) {
	t.Run("Variants", func(t *testing.T) {
		p, err := NewPrincipal(7, "renter")
		require.NoError(t, err)
		assert.Equal(t, Renter{ID: 7}, p)

		p, err = NewPrincipal(8, "owner")
		require.NoError(t, err)
		assert.Equal(t, Owner{ID: 8}, p)

		p, err = NewPrincipal(9, "admin")
		require.NoError(t, err)
		assert.Equal(t, Arbitrator{ID: 9}, p)
		assert.Equal(t, RoleAdmin, p.Role())
		assert.Equal(t, int64(9), p.UserID())
	})

	t.Run("Rejects", func(t *testing.T) {
		_, err := NewPrincipal(0, "renter")
		assert.ErrorIs(t, err, ErrValidation)
		_, err = NewPrincipal(1, "superuser")
		assert.ErrorIs(t, err, ErrValidation)
	})
}

func TestNarrowing(t *testing.T) {
	_, err := AsRenter(Owner{ID: 1})
	assert.ErrorIs(t, err, ErrForbidden)
	o, err := AsOwner(Owner{ID: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(1), o.ID)
	_, err = AsArbitrator(Renter{ID: 2})
	assert.ErrorIs(t, err, ErrForbidden)
}
