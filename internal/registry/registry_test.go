package registry

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/secfit/ip-protector/internal/fingerprint"
	"github.com/secfit/ip-protector/internal/store"
)

func TestRegisterPaper(t *testing.T) {
	svc, st, _ := newTestService(t)

	paper, err := svc.RegisterPaper(context.Background(), authorA, PaperRequest{
		Author:        authorA,
		PaperHash:     "h1",
		SectionsCount: 3,
	})
	require.NoError(t, err)

	_, proof, err := fingerprint.DerivePaperKey(authorA, "h1")
	require.NoError(t, err)

	assert.Equal(t, authorA, paper.Author)
	assert.Equal(t, "h1", paper.PaperHash)
	assert.Equal(t, uint8(3), paper.SectionsCount)
	assert.Equal(t, int64(1_700_000_000), paper.CreatedAt)
	assert.Equal(t, proof, paper.DerivationProof)
	assert.Equal(t, 1, st.Len())
}

// A second registration of the same paper fails and the stored
// sections_count keeps its first value.
func TestRegisterPaperDuplicateRejected(t *testing.T) {
	svc, st, clock := newTestService(t)
	ctx := context.Background()

	_, err := svc.RegisterPaper(ctx, authorA, PaperRequest{Author: authorA, PaperHash: "h1", SectionsCount: 3})
	require.NoError(t, err)

	clock.Advance(60)
	_, err = svc.RegisterPaper(ctx, authorA, PaperRequest{Author: authorA, PaperHash: "h1", SectionsCount: 5})
	require.Error(t, err)
	assert.True(t, IsAlreadyRegistered(err), "got %v", err)

	stored, err := svc.GetPaper(ctx, authorA, "h1")
	require.NoError(t, err)
	assert.Equal(t, uint8(3), stored.SectionsCount)
	assert.Equal(t, int64(1_700_000_000), stored.CreatedAt, "first record must be untouched")
	assert.Equal(t, 1, st.Len())
}

func TestRegisterPaperSameHashDifferentAuthors(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.RegisterPaper(ctx, authorA, PaperRequest{Author: authorA, PaperHash: "h1"})
	require.NoError(t, err)
	_, err = svc.RegisterPaper(ctx, authorB, PaperRequest{Author: authorB, PaperHash: "h1"})
	assert.NoError(t, err, "authors have independent key spaces")
}

func TestRegisterPaperBounds(t *testing.T) {
	cs := &countingStore{Store: store.NewMemStore()}
	svc := New(cs, WithClock(NewManualClock(1)))
	ctx := context.Background()

	_, err := svc.RegisterPaper(ctx, authorA, PaperRequest{Author: authorA, PaperHash: strings.Repeat("a", 65)})
	require.Error(t, err)
	assert.True(t, IsInvalidInput(err))
	assert.Equal(t, 0, cs.creates, "invalid input must not reach the store")

	_, err = svc.RegisterPaper(ctx, authorA, PaperRequest{Author: authorA, PaperHash: strings.Repeat("a", 64)})
	require.NoError(t, err)
	assert.Equal(t, 1, cs.creates)
}

func TestRegisterPaperSectionsCountRange(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	for _, n := range []uint8{0, 255} {
		p, err := svc.RegisterPaper(ctx, authorA, PaperRequest{
			Author:        authorA,
			PaperHash:     strings.Repeat("x", int(n%64)+1),
			SectionsCount: n,
		})
		require.NoError(t, err)
		assert.Equal(t, n, p.SectionsCount)
	}
}

func TestRegisterPaperUnauthorized(t *testing.T) {
	cs := &countingStore{Store: store.NewMemStore()}
	svc := New(cs)

	_, err := svc.RegisterPaper(context.Background(), authorB, PaperRequest{Author: authorA, PaperHash: "h1"})
	require.Error(t, err)
	assert.True(t, IsUnauthorized(err))
	assert.Equal(t, 0, cs.creates)
}

func TestRegisterPaperStoreFailure(t *testing.T) {
	cause := errors.New("connection refused")
	svc := New(failingStore{err: cause})

	_, err := svc.RegisterPaper(context.Background(), authorA, PaperRequest{Author: authorA, PaperHash: "h1"})
	require.Error(t, err)
	assert.True(t, IsStoreUnavailable(err))
	assert.ErrorIs(t, err, cause, "store errors are surfaced verbatim")
}

func TestRegisterPaperConcurrent(t *testing.T) {
	svc, st, _ := newTestService(t)
	ctx := context.Background()

	const workers = 32
	var (
		wg        sync.WaitGroup
		successes atomic.Int32
		conflicts atomic.Int32
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := svc.RegisterPaper(ctx, authorA, PaperRequest{
				Author:        authorA,
				PaperHash:     "race",
				SectionsCount: uint8(i),
			})
			switch {
			case err == nil:
				successes.Add(1)
			case IsAlreadyRegistered(err):
				conflicts.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), successes.Load(), "exactly one registration must win")
	assert.Equal(t, int32(workers-1), conflicts.Load())
	assert.Equal(t, 1, st.Len())
}

func TestRegisterSection(t *testing.T) {
	svc, _, _ := newTestService(t)

	section, err := svc.RegisterSection(context.Background(), authorA, SectionRequest{
		Author:          authorA,
		SectionType:     "abstract",
		ContentHash:     "c1",
		UniquenessScore: 90,
		Summary:         "A study of things.",
	})
	require.NoError(t, err)

	_, proof, err := fingerprint.DeriveSectionKey(authorA, "abstract", "c1")
	require.NoError(t, err)

	assert.Equal(t, authorA, section.Author)
	assert.Equal(t, "abstract", section.SectionType)
	assert.Equal(t, "c1", section.ContentHash)
	assert.Equal(t, uint8(90), section.UniquenessScore)
	assert.Equal(t, "A study of things.", section.Summary)
	assert.Equal(t, int64(1_700_000_000), section.CreatedAt)
	assert.Equal(t, proof, section.DerivationProof)
}

func TestRegisterSectionDuplicateRejected(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	req := SectionRequest{Author: authorA, SectionType: "abstract", ContentHash: "c1", UniquenessScore: 90}

	_, err := svc.RegisterSection(ctx, authorA, req)
	require.NoError(t, err)

	req.UniquenessScore = 10
	req.Summary = "rewritten"
	_, err = svc.RegisterSection(ctx, authorA, req)
	assert.True(t, IsAlreadyRegistered(err))

	stored, err := svc.GetSection(ctx, SectionQuery{Author: authorA, SectionType: "abstract", ContentHash: "c1"})
	require.NoError(t, err)
	assert.Equal(t, uint8(90), stored.UniquenessScore)
	assert.Empty(t, stored.Summary)
}

func TestRegisterSectionSameContentDifferentType(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.RegisterSection(ctx, authorA, SectionRequest{Author: authorA, SectionType: "abstract", ContentHash: "c1"})
	require.NoError(t, err)
	_, err = svc.RegisterSection(ctx, authorA, SectionRequest{Author: authorA, SectionType: "conclusion", ContentHash: "c1"})
	assert.NoError(t, err)
}

func TestPaperAndSectionDoNotCollide(t *testing.T) {
	svc, st, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.RegisterPaper(ctx, authorA, PaperRequest{Author: authorA, PaperHash: "h1"})
	require.NoError(t, err)
	_, err = svc.RegisterSection(ctx, authorA, SectionRequest{Author: authorA, SectionType: "h1", ContentHash: ""})
	require.NoError(t, err)
	assert.Equal(t, 2, st.Len())
}

func TestRegisterSectionBounds(t *testing.T) {
	tests := []struct {
		name  string
		req   SectionRequest
		field string
	}{
		{
			name:  "section type",
			req:   SectionRequest{SectionType: strings.Repeat("t", 33), ContentHash: "c1"},
			field: "section_type",
		},
		{
			name:  "content hash",
			req:   SectionRequest{SectionType: "abstract", ContentHash: strings.Repeat("c", 65)},
			field: "content_hash",
		},
		{
			name:  "summary",
			req:   SectionRequest{SectionType: "abstract", ContentHash: "c1", Summary: strings.Repeat("s", 501)},
			field: "summary",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cs := &countingStore{Store: store.NewMemStore()}
			svc := New(cs)
			tt.req.Author = authorA

			_, err := svc.RegisterSection(context.Background(), authorA, tt.req)
			var re *Error
			require.ErrorAs(t, err, &re)
			assert.Equal(t, CodeInvalidInput, re.Code)
			assert.Equal(t, tt.field, re.Field)
			assert.Equal(t, 0, cs.creates)
		})
	}

	svc, _, _ := newTestService(t)
	_, err := svc.RegisterSection(context.Background(), authorA, SectionRequest{
		Author:      authorA,
		SectionType: strings.Repeat("t", 32),
		ContentHash: strings.Repeat("c", 64),
		Summary:     strings.Repeat("s", 500),
	})
	assert.NoError(t, err, "values at the bounds are accepted")
}

func TestRegisterSectionUnauthorized(t *testing.T) {
	svc, st, _ := newTestService(t)

	_, err := svc.RegisterSection(context.Background(), authorB, SectionRequest{
		Author:      authorA,
		SectionType: "abstract",
		ContentHash: "c1",
	})
	assert.True(t, IsUnauthorized(err))
	assert.Equal(t, 0, st.Len())
}

func TestRegisterValidationPrecedesAuthorization(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.RegisterPaper(context.Background(), authorB, PaperRequest{
		Author:    authorA,
		PaperHash: strings.Repeat("a", 65),
	})
	assert.True(t, IsInvalidInput(err))
}
