package registry

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/secfit/ip-protector/internal/fingerprint"
	"github.com/secfit/ip-protector/internal/record"
	"github.com/secfit/ip-protector/internal/store"
)

func TestVerifyAuthorship(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.RegisterSection(ctx, authorA, SectionRequest{
		Author:          authorA,
		SectionType:     "abstract",
		ContentHash:     "c1",
		UniquenessScore: 90,
	})
	require.NoError(t, err)

	ok, err := svc.VerifyAuthorship(ctx, SectionQuery{Author: authorA, SectionType: "abstract", ContentHash: "c1"})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.VerifyAuthorship(ctx, SectionQuery{Author: authorB, SectionType: "abstract", ContentHash: "c1"})
	require.NoError(t, err)
	assert.False(t, ok, "another author must not verify")

	ok, err = svc.VerifyAuthorship(ctx, SectionQuery{Author: authorA, SectionType: "conclusion", ContentHash: "c1"})
	require.NoError(t, err)
	assert.False(t, ok, "section type is part of the identity")
}

func TestVerifyAuthorshipEmptyStore(t *testing.T) {
	svc, _, _ := newTestService(t)

	ok, err := svc.VerifyAuthorship(context.Background(), SectionQuery{Author: authorA, SectionType: "abstract", ContentHash: "c1"})
	require.NoError(t, err, "absence is a negative result, not an error")
	assert.False(t, ok)

	v, err := svc.Lookup(context.Background(), SectionQuery{Author: authorA, SectionType: "abstract", ContentHash: "c1"})
	require.NoError(t, err)
	assert.Equal(t, OutcomeNotFound, v.Outcome)
	assert.Nil(t, v.Section)
}

func TestLookupSingleRead(t *testing.T) {
	cs := &countingStore{Store: store.NewMemStore()}
	svc := New(cs)

	_, err := svc.Lookup(context.Background(), SectionQuery{Author: authorA, SectionType: "abstract", ContentHash: "c1"})
	require.NoError(t, err)
	assert.Equal(t, 1, cs.gets)
	assert.Equal(t, 0, cs.creates, "verification never writes")
}

func TestLookupVerified(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	registered, err := svc.RegisterSection(ctx, authorA, SectionRequest{
		Author:      authorA,
		SectionType: "proposed_model",
		ContentHash: "c9",
		Summary:     "transformer variant",
	})
	require.NoError(t, err)

	v, err := svc.Lookup(ctx, SectionQuery{Author: authorA, SectionType: "proposed_model", ContentHash: "c9"})
	require.NoError(t, err)
	assert.Equal(t, OutcomeVerified, v.Outcome)
	require.NotNil(t, v.Section)
	assert.Equal(t, registered, *v.Section)

	want, _, err := fingerprint.DeriveSectionKey(authorA, "proposed_model", "c9")
	require.NoError(t, err)
	assert.Equal(t, want, v.Key)
}

// plant writes raw record bytes at the section key of q, bypassing the
// service.
func plant(t *testing.T, st store.Store, q SectionQuery, data []byte) {
	t.Helper()
	key, _, err := fingerprint.DeriveSectionKey(q.Author, q.SectionType, q.ContentHash)
	require.NoError(t, err)
	require.NoError(t, st.CreateIfAbsent(context.Background(), key, data))
}

func TestLookupMismatch(t *testing.T) {
	q := SectionQuery{Author: authorA, SectionType: "abstract", ContentHash: "c1"}
	_, proof, err := fingerprint.DeriveSectionKey(q.Author, q.SectionType, q.ContentHash)
	require.NoError(t, err)

	genuine := record.Section{
		Author:          authorA,
		SectionType:     "abstract",
		ContentHash:     "c1",
		CreatedAt:       1,
		DerivationProof: proof,
	}

	tests := []struct {
		name   string
		tamper func(s *record.Section)
	}{
		{name: "author", tamper: func(s *record.Section) { s.Author = authorB }},
		{name: "content hash", tamper: func(s *record.Section) { s.ContentHash = "c2" }},
		{name: "proof", tamper: func(s *record.Section) { s.DerivationProof-- }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, st, _ := newTestService(t)
			s := genuine
			tt.tamper(&s)
			data, err := record.EncodeSection(s)
			require.NoError(t, err)
			plant(t, st, q, data)

			v, err := svc.Lookup(context.Background(), q)
			require.NoError(t, err)
			assert.Equal(t, OutcomeMismatch, v.Outcome)
			assert.NotNil(t, v.Section)

			ok, err := svc.VerifyAuthorship(context.Background(), q)
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestLookupPaperRecordAtSectionKey(t *testing.T) {
	svc, st, _ := newTestService(t)
	q := SectionQuery{Author: authorA, SectionType: "abstract", ContentHash: "c1"}

	data, err := record.EncodePaper(record.Paper{Author: authorA, PaperHash: "c1"})
	require.NoError(t, err)
	plant(t, st, q, data)

	v, err := svc.Lookup(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, OutcomeMismatch, v.Outcome)
	assert.Nil(t, v.Section)
}

func TestLookupCorruptRecord(t *testing.T) {
	svc, st, _ := newTestService(t)
	q := SectionQuery{Author: authorA, SectionType: "abstract", ContentHash: "c1"}
	plant(t, st, q, []byte("garbage"))

	_, err := svc.Lookup(context.Background(), q)
	require.Error(t, err)
	assert.True(t, IsStoreUnavailable(err))
	assert.ErrorIs(t, err, record.ErrMalformed)
}

func TestLookupStoreFailure(t *testing.T) {
	cause := errors.New("timeout")
	svc := New(failingStore{err: cause})

	ok, err := svc.VerifyAuthorship(context.Background(), SectionQuery{Author: authorA, SectionType: "abstract", ContentHash: "c1"})
	require.Error(t, err)
	assert.False(t, ok)
	assert.True(t, IsStoreUnavailable(err))
	assert.ErrorIs(t, err, cause)
}

func TestLookupBounds(t *testing.T) {
	cs := &countingStore{Store: store.NewMemStore()}
	svc := New(cs)

	_, err := svc.Lookup(context.Background(), SectionQuery{
		Author:      authorA,
		SectionType: "abstract",
		ContentHash: strings.Repeat("c", 65),
	})
	assert.True(t, IsInvalidInput(err))
	assert.Equal(t, 0, cs.gets)
}

// Every registered section verifies for its author and for nobody else.
func TestVerifySoundness(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	rng := rand.New(rand.NewSource(7))
	types := []string{"abstract", "introduction", "related_works", "proposed_model", "conclusion"}

	var registered []SectionQuery
	for i := 0; i < 200; i++ {
		author := identity(byte(rng.Intn(4)))
		q := SectionQuery{
			Author:      author,
			SectionType: types[rng.Intn(len(types))],
			ContentHash: fmt.Sprintf("%x", rng.Int63()),
		}
		_, err := svc.RegisterSection(ctx, author, SectionRequest{
			Author:      q.Author,
			SectionType: q.SectionType,
			ContentHash: q.ContentHash,
		})
		if IsAlreadyRegistered(err) {
			continue
		}
		require.NoError(t, err)
		registered = append(registered, q)
	}

	for _, q := range registered {
		ok, err := svc.VerifyAuthorship(ctx, q)
		require.NoError(t, err)
		assert.True(t, ok, "registered %+v must verify", q)

		other := q
		other.Author = identity(0xEE)
		ok, err = svc.VerifyAuthorship(ctx, other)
		require.NoError(t, err)
		assert.False(t, ok)

		other = q
		other.ContentHash = q.ContentHash + "x"
		ok, err = svc.VerifyAuthorship(ctx, other)
		require.NoError(t, err)
		assert.False(t, ok)
	}
}

func TestGetSection(t *testing.T) {
	svc, st, _ := newTestService(t)
	ctx := context.Background()
	q := SectionQuery{Author: authorA, SectionType: "abstract", ContentHash: "c1"}

	_, err := svc.GetSection(ctx, q)
	assert.True(t, IsNotFound(err))

	_, err = svc.RegisterSection(ctx, authorA, SectionRequest{Author: authorA, SectionType: "abstract", ContentHash: "c1", Summary: "s"})
	require.NoError(t, err)

	s, err := svc.GetSection(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, "s", s.Summary)

	tampered := SectionQuery{Author: authorB, SectionType: "introduction", ContentHash: "c1"}
	data, err := record.EncodeSection(record.Section{Author: authorA, SectionType: "introduction", ContentHash: "c1"})
	require.NoError(t, err)
	plant(t, st, tampered, data)

	_, err = svc.GetSection(ctx, tampered)
	assert.True(t, IsNotFound(err), "a mismatching record is not returned")
}

func TestGetPaper(t *testing.T) {
	svc, st, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.GetPaper(ctx, authorA, "h1")
	assert.True(t, IsNotFound(err))

	_, err = svc.RegisterPaper(ctx, authorA, PaperRequest{Author: authorA, PaperHash: "h1", SectionsCount: 4})
	require.NoError(t, err)

	p, err := svc.GetPaper(ctx, authorA, "h1")
	require.NoError(t, err)
	assert.Equal(t, uint8(4), p.SectionsCount)

	_, err = svc.GetPaper(ctx, authorB, "h1")
	assert.True(t, IsNotFound(err))

	key, _, err := fingerprint.DerivePaperKey(authorA, "h2")
	require.NoError(t, err)
	data, err := record.EncodeSection(record.Section{Author: authorA})
	require.NoError(t, err)
	require.NoError(t, st.CreateIfAbsent(ctx, key, data))

	_, err = svc.GetPaper(ctx, authorA, "h2")
	assert.True(t, IsNotFound(err))

	_, err = svc.GetPaper(ctx, authorA, strings.Repeat("h", 65))
	assert.True(t, IsInvalidInput(err))
}
