package tracker_test

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dbfs "github.com/garnizeh/jobtrack/db"
	dbpkg "github.com/garnizeh/jobtrack/internal/db"
	"github.com/garnizeh/jobtrack/internal/lifecycle"
	"github.com/garnizeh/jobtrack/internal/reconcile"
	"github.com/garnizeh/jobtrack/internal/repository/sqlite"
	"github.com/garnizeh/jobtrack/internal/tracker"
	"github.com/garnizeh/jobtrack/pkg/models"
)

var today = time.Date(2024, 3, 20, 10, 30, 0, 0, time.UTC)

type recordingNotifier struct {
	mu     sync.Mutex
	events []lifecycle.Event
}

func (r *recordingNotifier) NoResponse(ctx context.Context, ev lifecycle.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

type fixture struct {
	svc      *tracker.Service
	repo     *sqlite.SQLiteRepo
	notifier *recordingNotifier
	user     int64
}

func setup(t *testing.T) fixture {
	t.Helper()
	ctx := context.Background()
	d, err := dbpkg.New(ctx, filepath.Join(t.TempDir(), "tracker.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })
	require.NoError(t, dbpkg.Migrate(ctx, d, dbfs.Migrations))

	repo := sqlite.New(d, nil)
	n := &recordingNotifier{}
	svc := tracker.New(repo, repo, n, tracker.DefaultSettings(), nil)
	svc.SetClock(func() time.Time { return today })

	u, err := svc.Register(ctx, "alice", "secret", "secret")
	require.NoError(t, err)
	return fixture{svc: svc, repo: repo, notifier: n, user: u.ID}
}

func TestAddApplication(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	a, err := f.svc.AddApplication(ctx, f.user, "  Acme ", "Dev", "2024-03-01")
	require.NoError(t, err)
	assert.Equal(t, "Acme", a.Company)
	assert.Equal(t, "Applied", a.Status)
	assert.Equal(t, "Applied - 01/03/2024", a.Updates)
	assert.Empty(t, a.Notes)

	b, err := f.svc.AddApplication(ctx, f.user, "Globex", "Dev", "")
	require.NoError(t, err)
	assert.Equal(t, "Applied - 20/03/2024", b.Updates)

	c, err := f.svc.AddApplication(ctx, f.user, "Initech", "Dev", "someday")
	require.NoError(t, err)
	assert.Equal(t, "Applied - 20/03/2024", c.Updates, "unparseable date falls back to today")

	_, err = f.svc.AddApplication(ctx, f.user, " ", "Dev", "")
	require.ErrorIs(t, err, tracker.ErrInvalidInput)
}

func TestUpdateStatus_KeepsStatusInSyncWithLog(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	a, err := f.svc.AddApplication(ctx, f.user, "Acme", "Dev", "01/03/2024")
	require.NoError(t, err)

	got, err := f.svc.UpdateStatus(ctx, f.user, a.ID, "Interviewing")
	require.NoError(t, err)
	assert.Equal(t, "Interviewing", got.Status)
	assert.Equal(t, "Applied - 01/03/2024\nInterviewing - 20/03/2024", got.Updates)

	_, err = f.svc.UpdateStatus(ctx, f.user, a.ID, "")
	require.ErrorIs(t, err, tracker.ErrInvalidInput)

	_, err = f.svc.UpdateStatus(ctx, f.user, 9999, "Rejected")
	require.ErrorIs(t, err, tracker.ErrNotFound)
}

func TestEditUpdates_LeavesStatusAlone(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	a, err := f.svc.AddApplication(ctx, f.user, "Acme", "Dev", "01/03/2024")
	require.NoError(t, err)

	got, err := f.svc.EditUpdates(ctx, f.user, a.ID, "Applied - 01/03/2024\nOffer - 10/03/2024")
	require.NoError(t, err)
	// raw edits may leave status behind the log
	assert.Equal(t, "Applied", got.Status)
	assert.Equal(t, "Applied - 01/03/2024\nOffer - 10/03/2024", got.Updates)

	got, err = f.svc.UpdateNotes(ctx, f.user, a.ID, "call back\nafter lunch")
	require.NoError(t, err)
	assert.Equal(t, "call back\nafter lunch", got.Notes)
}

func TestOwnershipScoping(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	a, err := f.svc.AddApplication(ctx, f.user, "Acme", "Dev", "01/03/2024")
	require.NoError(t, err)

	bob, err := f.svc.Register(ctx, "bob", "pw", "pw")
	require.NoError(t, err)

	_, err = f.svc.UpdateStatus(ctx, bob.ID, a.ID, "Rejected")
	assert.ErrorIs(t, err, tracker.ErrNotFound)
	_, err = f.svc.UpdateNotes(ctx, bob.ID, a.ID, "x")
	assert.ErrorIs(t, err, tracker.ErrNotFound)
	_, err = f.svc.EditUpdates(ctx, bob.ID, a.ID, "x")
	assert.ErrorIs(t, err, tracker.ErrNotFound)
	_, err = f.svc.Duplicate(ctx, bob.ID, a.ID)
	assert.ErrorIs(t, err, tracker.ErrNotFound)
	assert.ErrorIs(t, f.svc.Delete(ctx, bob.ID, a.ID), tracker.ErrNotFound)

	d, err := f.svc.Dashboard(ctx, bob.ID, tracker.Options{}, tracker.DefaultSettings())
	require.NoError(t, err)
	assert.Empty(t, d.Applications)
	assert.NotNil(t, d.Applications)
}

func TestDuplicateAndDelete(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	a, err := f.svc.AddApplication(ctx, f.user, "Acme", "Dev", "01/03/2024")
	require.NoError(t, err)
	_, err = f.svc.UpdateNotes(ctx, f.user, a.ID, "referral")
	require.NoError(t, err)

	cp, err := f.svc.Duplicate(ctx, f.user, a.ID)
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, cp.ID)
	assert.Equal(t, "referral", cp.Notes)
	assert.Equal(t, a.Updates, cp.Updates)
	require.NotNil(t, cp.UserID)
	assert.Equal(t, f.user, *cp.UserID)

	require.NoError(t, f.svc.Delete(ctx, f.user, a.ID))
	assert.ErrorIs(t, f.svc.Delete(ctx, f.user, a.ID), tracker.ErrNotFound)
}

func TestDashboard_LapsesStaleApplications(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	stale, err := f.svc.AddApplication(ctx, f.user, "Acme", "Dev", "01/03/2024")
	require.NoError(t, err)
	fresh, err := f.svc.AddApplication(ctx, f.user, "Globex", "Dev", "15/03/2024")
	require.NoError(t, err)

	set := tracker.DefaultSettings()
	set.EmailNoResponse = true
	set.EmailAddress = "me@example.com"

	d, err := f.svc.Dashboard(ctx, f.user, tracker.Options{}, set)
	require.NoError(t, err)
	assert.Equal(t, 1, d.Transitioned)
	require.Len(t, d.Applications, 2)

	byID := map[int64]models.Application{}
	for _, a := range d.Applications {
		byID[a.ID] = a
	}
	assert.Equal(t, "No Response", byID[stale.ID].Status)
	assert.Equal(t, "Applied - 01/03/2024\nNo Response - 20/03/2024", byID[stale.ID].Updates)
	assert.Equal(t, "Applied", byID[fresh.ID].Status)

	// analytics see the post-sweep collection
	assert.Equal(t, "50%", d.Stats.RejectionRate)
	assert.Equal(t, 1, d.Stats.InProcess)
	require.NotNil(t, d.Stats.AvgFirstResponse)
	assert.Equal(t, "19 days", *d.Stats.AvgFirstResponse)
	assert.Equal(t, map[string]int{"Applied": 1, "No Response": 1}, d.StatusDistribution)

	require.Len(t, f.notifier.events, 1)
	assert.Equal(t, lifecycle.Event{ApplicationID: stale.ID, Recipient: "me@example.com", Company: "Acme", Role: "Dev", Days: 19}, f.notifier.events[0])

	// second read is idempotent
	d, err = f.svc.Dashboard(ctx, f.user, tracker.Options{}, set)
	require.NoError(t, err)
	assert.Zero(t, d.Transitioned)
	stored, err := f.repo.GetApplication(ctx, stale.ID, f.user)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(stored.Updates, "No Response"))
	assert.Len(t, f.notifier.events, 1)
}

func TestDashboard_SettingsControlSweep(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	a, err := f.svc.AddApplication(ctx, f.user, "Acme", "Dev", "01/03/2024")
	require.NoError(t, err)

	off := tracker.DefaultSettings()
	off.AutoNoResponse = false
	d, err := f.svc.Dashboard(ctx, f.user, tracker.Options{}, off)
	require.NoError(t, err)
	assert.Equal(t, "Applied", d.Applications[0].Status)

	lenient := tracker.DefaultSettings()
	lenient.NoResponseDays = 30
	d, err = f.svc.Dashboard(ctx, f.user, tracker.Options{}, lenient)
	require.NoError(t, err)
	assert.Equal(t, "Applied", d.Applications[0].Status)

	// no recipient configured: transition happens without a notice
	d, err = f.svc.Dashboard(ctx, f.user, tracker.Options{}, tracker.DefaultSettings())
	require.NoError(t, err)
	assert.Equal(t, "No Response", d.Applications[0].Status)
	assert.Equal(t, a.ID, d.Applications[0].ID)
	assert.Empty(t, f.notifier.events)
}

func TestDashboard_FilterAndInactiveBottom(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	a, _ := f.svc.AddApplication(ctx, f.user, "Acme", "Dev", "18/03/2024")
	b, _ := f.svc.AddApplication(ctx, f.user, "Globex", "Dev", "18/03/2024")
	c, _ := f.svc.AddApplication(ctx, f.user, "Initech", "Dev", "18/03/2024")
	_, err := f.svc.UpdateStatus(ctx, f.user, c.ID, "Rejected")
	require.NoError(t, err)

	set := tracker.DefaultSettings()
	d, err := f.svc.Dashboard(ctx, f.user, tracker.Options{}, set)
	require.NoError(t, err)
	assert.Equal(t, []int64{c.ID, b.ID, a.ID}, ids(d.Applications))

	set.InactiveBottom = true
	d, err = f.svc.Dashboard(ctx, f.user, tracker.Options{}, set)
	require.NoError(t, err)
	assert.Equal(t, []int64{b.ID, a.ID, c.ID}, ids(d.Applications))

	d, err = f.svc.Dashboard(ctx, f.user, tracker.Options{Status: "Rejected"}, set)
	require.NoError(t, err)
	assert.Equal(t, []int64{c.ID}, ids(d.Applications))

	d, err = f.svc.Dashboard(ctx, f.user, tracker.Options{Search: "glob"}, set)
	require.NoError(t, err)
	assert.Equal(t, []int64{b.ID}, ids(d.Applications))
}

func ids(apps []models.Application) []int64 {
	out := make([]int64, 0, len(apps))
	for _, a := range apps {
		out = append(out, a.ID)
	}
	return out
}

func TestBackupRestoreRoundTrip(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	a, _ := f.svc.AddApplication(ctx, f.user, "Acme", "Dev", "01/03/2024")
	b, _ := f.svc.AddApplication(ctx, f.user, "Globex", "Dev", "10/03/2024")

	var buf bytes.Buffer
	require.NoError(t, f.svc.Backup(ctx, f.user, &buf))
	assert.Contains(t, buf.String(), `"company": "Acme"`)

	var csv bytes.Buffer
	require.NoError(t, f.svc.ExportCSV(ctx, f.user, &csv))
	assert.True(t, strings.HasPrefix(csv.String(), "ID,Company,Role,Status,Updates,Notes\n"))

	require.NoError(t, f.svc.Delete(ctx, f.user, a.ID))

	n, err := f.svc.Restore(ctx, f.user, reconcile.Restore, []models.Application{
		{ID: a.ID, Company: "Acme", Role: "Dev", Status: "Applied", Updates: "Applied - 01/03/2024"},
		{ID: b.ID, Company: "Globex", Role: "Dev", Status: "Applied", Updates: "Applied - 10/03/2024"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	all, err := f.repo.ListAllApplications(ctx, f.user)
	require.NoError(t, err)
	assert.Equal(t, []int64{a.ID, b.ID}, ids(all))
}

func TestRestore_MergeCollisionGetsFreshID(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	a, _ := f.svc.AddApplication(ctx, f.user, "Acme", "Dev", "10/03/2024")

	n, err := f.svc.Restore(ctx, f.user, reconcile.Merge, []models.Application{
		{ID: a.ID, Company: "Older", Role: "QA", Status: "Applied", Updates: "Applied - 01/02/2024", Notes: "kept"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	all, err := f.repo.ListAllApplications(ctx, f.user)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, a.ID, all[0].ID)
	assert.Equal(t, "Acme", all[0].Company)
	assert.Greater(t, all[1].ID, a.ID)
	assert.Equal(t, "Older", all[1].Company)
	assert.Equal(t, "kept", all[1].Notes)
}

func TestRestore_InvalidRecordLeavesDataIntact(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	a, _ := f.svc.AddApplication(ctx, f.user, "Acme", "Dev", "10/03/2024")

	_, err := f.svc.Restore(ctx, f.user, reconcile.Restore, []models.Application{
		{ID: 1, Company: "Ok", Role: "Dev", Status: "Applied"},
		{ID: 2, Company: "", Role: "Dev", Status: "Applied"},
	})
	require.ErrorIs(t, err, reconcile.ErrInvalidRecord)

	_, err = f.svc.Restore(ctx, f.user, reconcile.Restore, []models.Application{
		{ID: 7, Company: "A", Role: "Dev", Status: "Applied"},
		{ID: 7, Company: "B", Role: "Dev", Status: "Applied"},
	})
	require.ErrorIs(t, err, reconcile.ErrDuplicateID)

	all, err := f.repo.ListAllApplications(ctx, f.user)
	require.NoError(t, err)
	assert.Equal(t, []int64{a.ID}, ids(all))
}

func TestRegisterAndAuthenticate(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.svc.Register(ctx, "alice", "other", "other")
	assert.ErrorIs(t, err, tracker.ErrUsernameTaken)

	_, err = f.svc.Register(ctx, "carol", "one", "two")
	assert.ErrorIs(t, err, tracker.ErrPasswordMismatch)

	_, err = f.svc.Register(ctx, "", "pw", "pw")
	assert.ErrorIs(t, err, tracker.ErrInvalidInput)

	u, err := f.svc.Authenticate(ctx, "alice", "secret")
	require.NoError(t, err)
	assert.Equal(t, f.user, u.ID)
	assert.NotEqual(t, "secret", u.PasswordHash)

	_, err = f.svc.Authenticate(ctx, "alice", "wrong")
	assert.ErrorIs(t, err, tracker.ErrInvalidCredentials)
	_, err = f.svc.Authenticate(ctx, "nobody", "secret")
	assert.ErrorIs(t, err, tracker.ErrInvalidCredentials)

	_, err = f.svc.User(ctx, 9999)
	assert.ErrorIs(t, err, tracker.ErrInvalidCredentials)
}
