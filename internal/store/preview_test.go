package store_test

import (
	"context"
	"time"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"

	"github.com/wireline-net/wireline/internal/config"
	st "github.com/wireline-net/wireline/internal/store"
	"github.com/wireline-net/wireline/internal/store/model"
)

var _ = Describe("preview store", Ordered, func() {
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
		gormDB.Exec("DELETE from preview_records;")
	})

	record := func(jobID, deviceID uuid.UUID, expires time.Time) model.PreviewRecord {
		return model.PreviewRecord{
			JobID:     jobID,
			DeviceID:  deviceID,
			Hostname:  "edge-01",
			Diff:      "+ ntp server 10.0.0.99",
			Checksum:  "c0ffee",
			ExpiresAt: expires,
			CreatedAt: time.Now(),
		}
	}

	It("stores a batch and reads it back ordered by device id", func() {
		jobID := uuid.New()
		devA := uuid.MustParse("00000000-0000-0000-0000-00000000000a")
		devB := uuid.MustParse("00000000-0000-0000-0000-00000000000b")
		expires := time.Now().Add(time.Hour)

		err := store.Preview().CreateBatch(context.TODO(), []model.PreviewRecord{
			record(jobID, devB, expires),
			record(jobID, devA, expires),
		})
		Expect(err).To(BeNil())

		records, err := store.Preview().ByJob(context.TODO(), jobID)
		Expect(err).To(BeNil())
		Expect(records).To(HaveLen(2))
		Expect(records[0].DeviceID).To(Equal(devA))
		Expect(records[1].DeviceID).To(Equal(devB))
		Expect(records[0].Diff).To(Equal("+ ntp server 10.0.0.99"))
	})

	It("tolerates a replayed batch", func() {
		jobID := uuid.New()
		devID := uuid.New()
		expires := time.Now().Add(time.Hour)

		batch := []model.PreviewRecord{record(jobID, devID, expires)}
		Expect(store.Preview().CreateBatch(context.TODO(), batch)).To(BeNil())

		replay := []model.PreviewRecord{record(jobID, devID, expires)}
		Expect(store.Preview().CreateBatch(context.TODO(), replay)).To(BeNil())

		records, err := store.Preview().ByJob(context.TODO(), jobID)
		Expect(err).To(BeNil())
		Expect(records).To(HaveLen(1))
	})

	It("stores nothing for an empty batch", func() {
		Expect(store.Preview().CreateBatch(context.TODO(), nil)).To(BeNil())
	})

	It("sweeps only expired records", func() {
		fresh := uuid.New()
		stale := uuid.New()
		now := time.Now()

		err := store.Preview().CreateBatch(context.TODO(), []model.PreviewRecord{
			record(fresh, uuid.New(), now.Add(time.Hour)),
			record(stale, uuid.New(), now.Add(-time.Hour)),
			record(stale, uuid.New(), now.Add(-2*time.Hour)),
		})
		Expect(err).To(BeNil())

		swept, err := store.Preview().DeleteExpired(context.TODO(), now)
		Expect(err).To(BeNil())
		Expect(swept).To(Equal(int64(2)))

		records, err := store.Preview().ByJob(context.TODO(), fresh)
		Expect(err).To(BeNil())
		Expect(records).To(HaveLen(1))

		records, err = store.Preview().ByJob(context.TODO(), stale)
		Expect(err).To(BeNil())
		Expect(records).To(BeEmpty())
	})
})
