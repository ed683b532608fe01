package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lendingdesk/internal/dates"
	"lendingdesk/internal/model"
)

func addItem(t *testing.T, s *Store, serial, title string) {
	t.Helper()
	err := s.InTx(context.Background(), func(tx model.Tx) error {
		return tx.InsertItem(context.Background(), &model.Item{
			Serial: serial, Kind: model.Book, Title: title, Author: "a",
			Category: model.Fiction, Cost: decimal.NewFromInt(10),
			AcquiredOn: dates.New(2024, 1, 1), Status: model.Available,
		})
	})
	require.NoError(t, err)
}

func TestInTxDiscardsWritesOnError(t *testing.T) {
	s := New()
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.InTx(ctx, func(tx model.Tx) error {
		if err := tx.InsertMember(ctx, &model.Member{FirstName: "A", LastName: "B", Status: model.Active}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	err = s.InTx(ctx, func(tx model.Tx) error {
		members, err := tx.ListMembers(ctx)
		require.NoError(t, err)
		assert.Empty(t, members)
		return nil
	})
	require.NoError(t, err)
}

func TestItemsOrderedByTitleThenSerial(t *testing.T) {
	s := New()
	addItem(t, s, "03", "Zebra")
	addItem(t, s, "02", "apple pie")
	addItem(t, s, "01", "Apple Pie")

	var serials []string
	for item, err := range s.Items(context.Background(), model.ItemQuery{TitleContains: "APPLE"}) {
		require.NoError(t, err)
		serials = append(serials, item.Serial)
	}
	assert.Equal(t, []string{"01", "02"}, serials)
}

func TestMaxSerialSkipsNonNumeric(t *testing.T) {
	s := New()
	addItem(t, s, "07", "x")
	addItem(t, s, "legacy-9", "y")

	err := s.InTx(context.Background(), func(tx model.Tx) error {
		max, err := tx.MaxSerial(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 7, max)
		return nil
	})
	require.NoError(t, err)
}

func TestOneOpenIssuePerItem(t *testing.T) {
	s := New()
	ctx := context.Background()
	addItem(t, s, "01", "x")

	var memberID int64
	require.NoError(t, s.InTx(ctx, func(tx model.Tx) error {
		m := &model.Member{FirstName: "A", LastName: "B", Status: model.Active}
		if err := tx.InsertMember(ctx, m); err != nil {
			return err
		}
		memberID = m.ID
		return nil
	}))
	assert.Equal(t, int64(1), memberID)

	issue := func() error {
		return s.InTx(ctx, func(tx model.Tx) error {
			return tx.InsertIssue(ctx, &model.Issue{
				ID: uuid.New(), Serial: "01", MemberID: memberID,
				IssueDate: dates.New(2024, 1, 1), DueDate: dates.New(2024, 1, 10),
			})
		})
	}
	require.NoError(t, issue())
	assert.ErrorIs(t, issue(), model.ErrDuplicate)
}

func TestUpdateMemberRejectsNegativeFine(t *testing.T) {
	s := New()
	ctx := context.Background()
	err := s.InTx(ctx, func(tx model.Tx) error {
		m := &model.Member{FirstName: "A", LastName: "B", Status: model.Active}
		if err := tx.InsertMember(ctx, m); err != nil {
			return err
		}
		m.PendingFine = decimal.NewFromInt(-1)
		return tx.UpdateMember(ctx, m)
	})
	assert.Error(t, err)
}
