package reconcile

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/careers-portal/internal/drafts"
	"github.com/jonathan/careers-portal/internal/types"
	"github.com/jonathan/careers-portal/internal/validation"
)

var listNow = time.Date(2024, time.July, 15, 0, 0, 0, 0, time.UTC)

func job(id, company string, startYear int, present bool) types.ExperienceEntry {
	e := types.ExperienceEntry{
		ID:           id,
		Company:      company,
		PositionHeld: "Clerk",
		StartDate:    types.NewDate(startYear, time.January, 1),
		Present:      present,
	}
	if !present {
		e.EndDate = types.DatePtr(startYear+1, time.July, 1)
	}
	return e
}

func newExperienceRepo(seed ...types.ExperienceEntry) *fakeRepo[types.ExperienceEntry] {
	return newFakeRepo(
		types.ExperienceEntry.EntityID,
		func(e types.ExperienceEntry, id string) types.ExperienceEntry { e.ID = id; return e },
		seed...,
	)
}

func newExperience(t *testing.T, repo Repository[types.ExperienceEntry], backend drafts.Backend) *ListSession[types.ExperienceEntry] {
	t.Helper()
	cfg := testConfig(backend)
	cfg.Now = func() time.Time { return listNow }
	cfg.Validator = validation.New(validation.WithClock(cfg.Now))
	s, err := NewListSession(context.Background(), cfg, ExperienceList(cfg.Validator, validation.DefaultMaxExperience), repo, Hooks[types.ExperienceEntry]{})
	require.NoError(t, err)
	return s
}

func TestListSession_AddDerivesStayLength(t *testing.T) {
	ctx := context.Background()
	s := newExperience(t, newExperienceRepo(), drafts.NewMemoryBackend())

	idx, err := s.Add(ctx, job("", "Acme", 2020, true))
	require.NoError(t, err)
	assert.Equal(t, 0, idx)

	entries := s.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, types.StayLength{Years: 4, Months: 6}, entries[0].Record.StayLength)
	assert.Equal(t, applicant, entries[0].Record.ApplicantID)
}

func TestListSession_ExperienceCap(t *testing.T) {
	ctx := context.Background()
	repo := newExperienceRepo(job("1", "A", 2015, false), job("2", "B", 2017, false))
	s := newExperience(t, repo, drafts.NewMemoryBackend())

	idx, err := s.Add(ctx, job("", "C", 2019, false))
	require.NoError(t, err)
	assert.Equal(t, 2, idx)

	_, err = s.Add(ctx, job("", "D", 2021, true))
	requireMessage(t, err, "You can only add up to 3 work experiences")

	require.NoError(t, s.Delete(ctx, 0))
	idx, err = s.Add(ctx, job("", "D", 2021, true))
	require.NoError(t, err)
	assert.Equal(t, 3, idx, "indexes never shift")
	assert.Equal(t, 3, s.Count())
}

func TestListSession_ValidationBlocksAdd(t *testing.T) {
	s := newExperience(t, newExperienceRepo(), drafts.NewMemoryBackend())

	e := job("", "Acme", 2020, false)
	e.EndDate = nil
	_, err := s.Add(context.Background(), e)

	var ferr *validation.FieldErrors
	require.True(t, errors.As(err, &ferr))
	assert.True(t, ferr.Has("end_date"))
	assert.Zero(t, s.Count())
}

func TestListSession_SetDraftKeepsID(t *testing.T) {
	ctx := context.Background()
	repo := newExperienceRepo(job("1", "A", 2015, false))
	s := newExperience(t, repo, drafts.NewMemoryBackend())

	edited := job("", "A Corp", 2015, false)
	require.NoError(t, s.SetDraft(ctx, 0, edited))
	assert.Equal(t, "1", s.Entries()[0].Record.ID)

	err := s.SetDraft(ctx, 5, edited)
	var nf *NotFoundError
	assert.True(t, errors.As(err, &nf))

	require.NoError(t, s.SaveAll(ctx))
	records := repo.snapshot()
	require.Len(t, records, 1)
	assert.Equal(t, "A Corp", records[0].Company)
}

func TestListSession_DeletionDeferralAndDiscard(t *testing.T) {
	ctx := context.Background()
	repo := newExperienceRepo(job("1", "A", 2015, false), job("2", "B", 2017, false))
	s := newExperience(t, repo, drafts.NewMemoryBackend())

	require.NoError(t, s.Delete(ctx, 1))
	assert.Equal(t, 1, s.Count())
	assert.Equal(t, []PendingDeletion{{ID: "2", Slot: "1"}}, s.Pending())

	_, deletes := repo.calls()
	assert.Zero(t, deletes)

	assert.ErrorIs(t, s.Discard(ctx, false), ErrConfirmationRequired)
	require.NoError(t, s.Discard(ctx, true))
	assert.Equal(t, 2, s.Count())

	_, deletes = repo.calls()
	assert.Zero(t, deletes)
}

func TestListSession_DeleteNewEntryDropsDraft(t *testing.T) {
	ctx := context.Background()
	s := newExperience(t, newExperienceRepo(), drafts.NewMemoryBackend())

	idx, err := s.Add(ctx, job("", "A", 2015, false))
	require.NoError(t, err)
	require.NoError(t, s.Delete(ctx, idx))
	assert.Zero(t, s.Count())
	assert.Empty(t, s.Pending())
	assert.Empty(t, s.Drafts())

	assert.Error(t, s.Delete(ctx, idx))
}

func TestListSession_SaveAllAndIdempotence(t *testing.T) {
	ctx := context.Background()
	repo := newExperienceRepo(job("1", "A", 2015, false), job("2", "B", 2017, false))
	s := newExperience(t, repo, drafts.NewMemoryBackend())

	require.NoError(t, s.Delete(ctx, 0))
	_, err := s.Add(ctx, job("", "C", 2020, true))
	require.NoError(t, err)

	require.NoError(t, s.SaveAll(ctx))
	defines, deletes := repo.calls()
	assert.Equal(t, 1, defines)
	assert.Equal(t, 1, deletes)

	records := s.Records()
	require.Len(t, records, 2)
	assert.Equal(t, "B", records[0].Company)
	assert.Equal(t, "C", records[1].Company)
	assert.NotEmpty(t, records[1].ID)

	repo.reset()
	require.NoError(t, s.SaveAll(ctx))
	defines, deletes = repo.calls()
	assert.Zero(t, defines)
	assert.Zero(t, deletes)
}

func TestListSession_PartialFailure(t *testing.T) {
	ctx := context.Background()
	repo := newExperienceRepo(job("1", "A", 2015, false))
	repo.failDefine = func(e types.ExperienceEntry) error {
		if e.Company == "Bad" {
			return errors.New("502 bad gateway")
		}
		return nil
	}
	s := newExperience(t, repo, drafts.NewMemoryBackend())

	_, err := s.Add(ctx, job("", "Good", 2018, false))
	require.NoError(t, err)
	_, err = s.Add(ctx, job("", "Bad", 2020, true))
	require.NoError(t, err)

	err = s.SaveAll(ctx)
	var batch *BatchError
	require.True(t, errors.As(err, &batch))
	assert.Equal(t, []string{"2"}, batch.FailedSlots())
	assert.Contains(t, err.Error(), "502 bad gateway")

	entries := s.Entries()
	require.Len(t, entries, 3)
	assert.NotEmpty(t, entries[1].Record.ID, "created entry is stamped with its id")

	repo.failDefine = nil
	require.NoError(t, s.SaveAll(ctx))
	assert.Len(t, repo.snapshot(), 3, "retry does not duplicate the created entry")
}

func TestListSession_DiscardAfterPartialFailureShowsCreatedEntries(t *testing.T) {
	ctx := context.Background()
	repo := newExperienceRepo(job("1", "A", 2015, false), job("2", "B", 2016, false))
	repo.failDefine = func(e types.ExperienceEntry) error {
		if e.Company == "Bad" {
			return errors.New("502 bad gateway")
		}
		return nil
	}
	s := newExperience(t, repo, drafts.NewMemoryBackend())

	require.NoError(t, s.Delete(ctx, 0))
	_, err := s.Add(ctx, job("", "Good", 2018, false))
	require.NoError(t, err)
	require.NoError(t, s.SetDraft(ctx, 1, job("2", "Bad", 2016, false)))

	var batch *BatchError
	require.True(t, errors.As(s.SaveAll(ctx), &batch))

	require.NoError(t, s.Discard(ctx, true))
	assert.False(t, s.HasChanges())

	companies := make([]string, 0, 2)
	for _, rec := range s.Records() {
		companies = append(companies, rec.Company)
	}
	assert.Equal(t, []string{"B", "Good"}, companies, "upstream state is shown after the discard")
}

func TestListSession_ReloadFailureAfterSaveKeepsLocalView(t *testing.T) {
	ctx := context.Background()
	repo := newExperienceRepo(job("1", "A", 2015, false), job("2", "B", 2017, false))
	s := newExperience(t, repo, drafts.NewMemoryBackend())

	require.NoError(t, s.Delete(ctx, 0))
	_, err := s.Add(ctx, job("", "C", 2020, true))
	require.NoError(t, err)

	repo.listErr = errors.New("unavailable")
	require.NoError(t, s.SaveAll(ctx))

	records := s.Records()
	require.Len(t, records, 2)
	assert.Equal(t, "B", records[0].Company)
	assert.Equal(t, "C", records[1].Company)
}

func TestListSession_References(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo(
		types.ReferenceEntry.EntityID,
		func(e types.ReferenceEntry, id string) types.ReferenceEntry { e.ID = id; return e },
	)
	v := validation.New()
	s, err := NewListSession(ctx, testConfig(nil), ReferenceList(v), repo, Hooks[types.ReferenceEntry]{})
	require.NoError(t, err)

	_, err = s.Add(ctx, types.ReferenceEntry{Name: "Jo"})
	var ferr *validation.FieldErrors
	require.True(t, errors.As(err, &ferr))
	assert.True(t, ferr.Has("contact_number"))

	for _, name := range []string{"Jo", "Al", "Cy", "Di"} {
		_, err := s.Add(ctx, types.ReferenceEntry{Name: name, ContactNumber: "0917"})
		require.NoError(t, err, "references have no cap")
	}
	require.NoError(t, s.SaveAll(ctx))
	assert.Len(t, repo.snapshot(), 4)
}

func TestListSession_Dependents(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo(
		types.DependentEntry.EntityID,
		func(e types.DependentEntry, id string) types.DependentEntry { e.ID = id; return e },
	)
	v := validation.New(validation.WithClock(func() time.Time { return listNow }))
	s, err := NewListSession(ctx, testConfig(nil), DependentList(v), repo, Hooks[types.DependentEntry]{})
	require.NoError(t, err)

	_, err = s.Add(ctx, types.DependentEntry{Name: "Kid", Relationship: "Child", Birthday: types.NewDate(2030, time.January, 1)})
	var ferr *validation.FieldErrors
	require.True(t, errors.As(err, &ferr))
	assert.True(t, ferr.Has("birthday"))

	_, err = s.Add(ctx, types.DependentEntry{Name: "Kid", Relationship: "Child", Birthday: types.NewDate(2015, time.January, 1)})
	require.NoError(t, err)
	require.NoError(t, s.SaveAll(ctx))
	assert.Len(t, repo.snapshot(), 1)
}
