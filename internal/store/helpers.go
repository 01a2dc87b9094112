package store

import (
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgtype"

	"elva.app/accounting/internal/model"
)

func pgTimestamptz(t time.Time) pgtype.Timestamptz {
	return pgtype.Timestamptz{Time: t, Valid: true}
}

// timeToPgTimestamptz maps a nil bound to SQL NULL.
func timeToPgTimestamptz(t *time.Time) pgtype.Timestamptz {
	if t == nil {
		return pgtype.Timestamptz{Valid: false}
	}
	return pgtype.Timestamptz{Time: *t, Valid: true}
}

func pgTimestamptzToTime(ts pgtype.Timestamptz) *time.Time {
	if !ts.Valid {
		return nil
	}
	t := ts.Time
	return &t
}

// dayKeyToPgDate parses an inclusive "2006-01-02" bound; nil maps to SQL NULL.
func dayKeyToPgDate(key *string) (pgtype.Date, error) {
	if key == nil {
		return pgtype.Date{Valid: false}, nil
	}
	day, err := time.Parse(model.DateLayout, *key)
	if err != nil {
		return pgtype.Date{}, fmt.Errorf("parsing day %q: %w", *key, err)
	}
	return pgtype.Date{Time: day, Valid: true}, nil
}

func intToInt32Ptr(v *int) *int32 {
	if v == nil {
		return nil
	}
	n := int32(*v)
	return &n
}

func int32ToIntPtr(v *int32) *int {
	if v == nil {
		return nil
	}
	n := int(*v)
	return &n
}

func derefInt32(v *int32) int {
	if v == nil {
		return 0
	}
	return int(*v)
}
