package store_test

import (
	"context"
	"time"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"

	api "github.com/wireline-net/wireline/api/v1"
	"github.com/wireline-net/wireline/internal/config"
	st "github.com/wireline-net/wireline/internal/store"
	"github.com/wireline-net/wireline/internal/store/model"
)

func newJob(state string) model.Job {
	return model.Job{
		ID:        uuid.New(),
		Type:      model.JobTypeRunCommands,
		State:     state,
		OrgID:     "acme",
		Requester: "admin",
		Target:    model.MakeJSONField(api.TargetSpec{Site: "fra1"}),
		Payload:   model.MakeJSONField(api.JobPayload{Commands: []string{"show version"}}),
	}
}

var _ = Describe("job store", Ordered, func() {
	var (
		store  st.Store
		gormDB *gorm.DB
	)

	BeforeAll(func() {
		db, err := st.InitDB(config.NewDefault())
		Expect(err).To(BeNil())
		gormDB = db

		store = st.NewStore(db)
		Expect(store.InitialMigration(context.TODO())).To(BeNil())
	})

	AfterAll(func() {
		store.Close()
	})

	AfterEach(func() {
		gormDB.Exec("DELETE from device_results;")
		gormDB.Exec("DELETE from job_log_entries;")
		gormDB.Exec("DELETE from jobs;")
	})

	Context("create and get", func() {
		It("round-trips the target and payload columns", func() {
			previewID := uuid.New()
			job := newJob(model.JobStateQueued)
			job.Target = model.MakeJSONField(api.TargetSpec{
				DeviceIDs: []uuid.UUID{uuid.New(), uuid.New()},
			})
			job.Payload = model.MakeJSONField(api.JobPayload{
				Snippet: "ntp server 10.0.0.99",
				Mode:    api.DeployModeMerge,
			})
			job.Type = model.JobTypeDeployCommit
			job.Confirmed = true
			job.PreviewOf = &previewID

			created, err := store.Job().Create(context.TODO(), job)
			Expect(err).To(BeNil())

			got, err := store.Job().Get(context.TODO(), created.ID)
			Expect(err).To(BeNil())
			Expect(got.Type).To(Equal(model.JobTypeDeployCommit))
			Expect(got.State).To(Equal(model.JobStateQueued))
			Expect(got.Requester).To(Equal("admin"))
			Expect(got.Confirmed).To(BeTrue())
			Expect(got.PreviewOf).ToNot(BeNil())
			Expect(*got.PreviewOf).To(Equal(previewID))
			Expect(got.Target.Data.DeviceIDs).To(HaveLen(2))
			Expect(got.Payload.Data.Snippet).To(Equal("ntp server 10.0.0.99"))
			Expect(got.Payload.Data.Mode).To(Equal(api.DeployModeMerge))
		})

		It("reports a missing job", func() {
			_, err := store.Job().Get(context.TODO(), uuid.New())
			Expect(err).To(MatchError(st.ErrRecordNotFound))
		})

		It("preloads results ordered by device id", func() {
			created, err := store.Job().Create(context.TODO(), newJob(model.JobStateRunning))
			Expect(err).To(BeNil())

			ids := []uuid.UUID{
				uuid.MustParse("00000000-0000-0000-0000-00000000000c"),
				uuid.MustParse("00000000-0000-0000-0000-00000000000a"),
				uuid.MustParse("00000000-0000-0000-0000-00000000000b"),
			}
			for _, id := range ids {
				err = store.Job().AppendResults(context.TODO(), created.ID, []model.DeviceResult{
					{DeviceID: id, Status: model.ResultStatusSuccess},
				})
				Expect(err).To(BeNil())
			}

			got, err := store.Job().Get(context.TODO(), created.ID)
			Expect(err).To(BeNil())
			Expect(got.Results).To(HaveLen(3))
			Expect(got.Results[0].DeviceID.String()).To(HaveSuffix("a"))
			Expect(got.Results[1].DeviceID.String()).To(HaveSuffix("b"))
			Expect(got.Results[2].DeviceID.String()).To(HaveSuffix("c"))
		})
	})

	Context("list", func() {
		It("filters by organization, state and type", func() {
			jobs := []model.Job{
				newJob(model.JobStateQueued),
				newJob(model.JobStateRunning),
				newJob(model.JobStateSuccess),
			}
			jobs[2].Type = model.JobTypeBackup
			foreign := newJob(model.JobStateQueued)
			foreign.OrgID = "globex"
			jobs = append(jobs, foreign)

			for _, job := range jobs {
				_, err := store.Job().Create(context.TODO(), job)
				Expect(err).To(BeNil())
			}

			listed, err := store.Job().List(context.TODO(),
				st.NewJobQueryFilter().ByOrgID("acme"),
				st.NewJobQueryOptions())
			Expect(err).To(BeNil())
			Expect(listed).To(HaveLen(3))

			listed, err = store.Job().List(context.TODO(),
				st.NewJobQueryFilter().ByOrgID("acme").ByStates([]string{model.JobStateQueued, model.JobStateRunning}),
				st.NewJobQueryOptions())
			Expect(err).To(BeNil())
			Expect(listed).To(HaveLen(2))

			listed, err = store.Job().List(context.TODO(),
				st.NewJobQueryFilter().ByOrgID("acme").ByType(model.JobTypeBackup),
				st.NewJobQueryOptions())
			Expect(err).To(BeNil())
			Expect(listed).To(HaveLen(1))
		})

		It("pages with limit and offset", func() {
			for i := 0; i < 5; i++ {
				_, err := store.Job().Create(context.TODO(), newJob(model.JobStateQueued))
				Expect(err).To(BeNil())
			}

			listed, err := store.Job().List(context.TODO(),
				st.NewJobQueryFilter(),
				st.NewJobQueryOptions().WithSortOrder(st.SortByID).WithLimit(2))
			Expect(err).To(BeNil())
			Expect(listed).To(HaveLen(2))

			listed, err = store.Job().List(context.TODO(),
				st.NewJobQueryFilter(),
				st.NewJobQueryOptions().WithSortOrder(st.SortByID).WithLimit(2).WithOffset(4))
			Expect(err).To(BeNil())
			Expect(listed).To(HaveLen(1))
		})
	})

	Context("state transitions", func() {
		It("moves a queued job to running once", func() {
			created, err := store.Job().Create(context.TODO(), newJob(model.JobStateQueued))
			Expect(err).To(BeNil())

			running, err := store.Job().SetRunning(context.TODO(), created.ID)
			Expect(err).To(BeNil())
			Expect(running.State).To(Equal(model.JobStateRunning))
			Expect(running.StartedAt).ToNot(BeNil())

			_, err = store.Job().SetRunning(context.TODO(), created.ID)
			Expect(err).To(MatchError(st.ErrStateConflict))
		})

		It("cancels only jobs still in the queue", func() {
			created, err := store.Job().Create(context.TODO(), newJob(model.JobStateQueued))
			Expect(err).To(BeNil())

			cancelled, err := store.Job().CancelQueued(context.TODO(), created.ID)
			Expect(err).To(BeNil())
			Expect(cancelled.State).To(Equal(model.JobStateCancelled))
			Expect(cancelled.FinishedAt).ToNot(BeNil())

			running, err := store.Job().Create(context.TODO(), newJob(model.JobStateRunning))
			Expect(err).To(BeNil())
			_, err = store.Job().CancelQueued(context.TODO(), running.ID)
			Expect(err).To(MatchError(st.ErrStateConflict))
		})

		It("finalizes a running job and freezes it", func() {
			created, err := store.Job().Create(context.TODO(), newJob(model.JobStateRunning))
			Expect(err).To(BeNil())

			finalized, err := store.Job().Finalize(context.TODO(), created.ID, model.JobStatePartialFailure, 2, 1)
			Expect(err).To(BeNil())
			Expect(finalized.State).To(Equal(model.JobStatePartialFailure))
			Expect(finalized.TargetsSucceeded).To(Equal(2))
			Expect(finalized.TargetsFailed).To(Equal(1))
			Expect(finalized.FinishedAt).ToNot(BeNil())

			// terminal states admit no further transition
			_, err = store.Job().Finalize(context.TODO(), created.ID, model.JobStateFailed, 0, 3)
			Expect(err).To(MatchError(st.ErrStateConflict))

			got, err := store.Job().Get(context.TODO(), created.ID)
			Expect(err).To(BeNil())
			Expect(got.State).To(Equal(model.JobStatePartialFailure))
		})

		It("fails a queued job that never dispatched", func() {
			created, err := store.Job().Create(context.TODO(), newJob(model.JobStateQueued))
			Expect(err).To(BeNil())

			finalized, err := store.Job().Finalize(context.TODO(), created.ID, model.JobStateFailed, 0, 0)
			Expect(err).To(BeNil())
			Expect(finalized.State).To(Equal(model.JobStateFailed))
		})

		It("refuses success as a target for a queued job", func() {
			created, err := store.Job().Create(context.TODO(), newJob(model.JobStateQueued))
			Expect(err).To(BeNil())

			_, err = store.Job().Finalize(context.TODO(), created.ID, model.JobStateSuccess, 0, 0)
			Expect(err).To(MatchError(st.ErrStateConflict))
		})

		It("refuses non-terminal finalize targets", func() {
			created, err := store.Job().Create(context.TODO(), newJob(model.JobStateQueued))
			Expect(err).To(BeNil())

			_, err = store.Job().Finalize(context.TODO(), created.ID, model.JobStateRunning, 0, 0)
			Expect(err).To(MatchError(st.ErrStateConflict))
		})

		It("tells a missing job apart from a refused transition", func() {
			_, err := store.Job().SetRunning(context.TODO(), uuid.New())
			Expect(err).To(MatchError(st.ErrRecordNotFound))
		})
	})

	Context("progress", func() {
		It("updates counts on a running job only", func() {
			created, err := store.Job().Create(context.TODO(), newJob(model.JobStateRunning))
			Expect(err).To(BeNil())

			Expect(store.Job().UpdateCounts(context.TODO(), created.ID, 5, 2, 1)).To(BeNil())

			got, err := store.Job().Get(context.TODO(), created.ID)
			Expect(err).To(BeNil())
			Expect(got.TargetsTotal).To(Equal(5))
			Expect(got.TargetsSucceeded).To(Equal(2))
			Expect(got.TargetsFailed).To(Equal(1))

			queued, err := store.Job().Create(context.TODO(), newJob(model.JobStateQueued))
			Expect(err).To(BeNil())
			err = store.Job().UpdateCounts(context.TODO(), queued.ID, 5, 0, 0)
			Expect(err).To(MatchError(st.ErrStateConflict))
		})
	})

	Context("results", func() {
		It("appends and reads back device results", func() {
			created, err := store.Job().Create(context.TODO(), newJob(model.JobStateRunning))
			Expect(err).To(BeNil())

			deviceID := uuid.New()
			err = store.Job().AppendResults(context.TODO(), created.ID, []model.DeviceResult{{
				DeviceID:   deviceID,
				Hostname:   "edge-01",
				Status:     model.ResultStatusFailed,
				ErrorKind:  "unreachable",
				Error:      "connect edge-01: no route to host",
				StartedAt:  time.Now(),
				FinishedAt: time.Now(),
			}})
			Expect(err).To(BeNil())

			results, err := store.Job().Results(context.TODO(), created.ID)
			Expect(err).To(BeNil())
			Expect(results).To(HaveLen(1))
			Expect(results[0].JobID).To(Equal(created.ID))
			Expect(results[0].DeviceID).To(Equal(deviceID))
			Expect(results[0].Status).To(Equal(model.ResultStatusFailed))
			Expect(results[0].ErrorKind).To(Equal("unreachable"))
		})

		It("ignores a replayed result for the same device", func() {
			created, err := store.Job().Create(context.TODO(), newJob(model.JobStateRunning))
			Expect(err).To(BeNil())

			res := model.DeviceResult{DeviceID: uuid.New(), Status: model.ResultStatusSuccess, Output: "first"}
			Expect(store.Job().AppendResults(context.TODO(), created.ID, []model.DeviceResult{res})).To(BeNil())

			replay := res
			replay.Output = "second"
			Expect(store.Job().AppendResults(context.TODO(), created.ID, []model.DeviceResult{replay})).To(BeNil())

			results, err := store.Job().Results(context.TODO(), created.ID)
			Expect(err).To(BeNil())
			Expect(results).To(HaveLen(1))
			Expect(results[0].Output).To(Equal("first"))
		})

		It("refuses results against a terminal job", func() {
			created, err := store.Job().Create(context.TODO(), newJob(model.JobStateSuccess))
			Expect(err).To(BeNil())

			err = store.Job().AppendResults(context.TODO(), created.ID, []model.DeviceResult{
				{DeviceID: uuid.New(), Status: model.ResultStatusSuccess},
			})
			Expect(err).To(MatchError(st.ErrStateConflict))
		})

		It("refuses results for a missing job", func() {
			err := store.Job().AppendResults(context.TODO(), uuid.New(), []model.DeviceResult{
				{DeviceID: uuid.New(), Status: model.ResultStatusSuccess},
			})
			Expect(err).To(MatchError(st.ErrRecordNotFound))
		})
	})

	Context("logs", func() {
		It("keeps the audit trail in append order", func() {
			created, err := store.Job().Create(context.TODO(), newJob(model.JobStateRunning))
			Expect(err).To(BeNil())

			Expect(store.Job().AppendLog(context.TODO(), created.ID, "info", "dispatching to 3 device(s)")).To(BeNil())
			Expect(store.Job().AppendLog(context.TODO(), created.ID, "error", "edge-02 unreachable")).To(BeNil())
			Expect(store.Job().AppendLog(context.TODO(), created.ID, "info", "job finished")).To(BeNil())

			entries, err := store.Job().Logs(context.TODO(), created.ID)
			Expect(err).To(BeNil())
			Expect(entries).To(HaveLen(3))
			Expect(entries[0].Message).To(Equal("dispatching to 3 device(s)"))
			Expect(entries[1].Level).To(Equal("error"))
			Expect(entries[2].Message).To(Equal("job finished"))
		})

		It("refuses new lines on a terminal job", func() {
			created, err := store.Job().Create(context.TODO(), newJob(model.JobStateCancelled))
			Expect(err).To(BeNil())

			err = store.Job().AppendLog(context.TODO(), created.ID, "info", "too late")
			Expect(err).To(MatchError(st.ErrStateConflict))
		})
	})
})
