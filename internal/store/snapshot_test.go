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

var _ = Describe("snapshot store", Ordered, func() {
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
		gormDB.Exec("DELETE from config_snapshots;")
	})

	It("returns the most recent capture of a device", func() {
		deviceID := uuid.New()
		for i, cfg := range []string{"hostname edge-01\n", "hostname edge-01\nntp server 10.0.0.99\n"} {
			_, err := store.Snapshot().Create(context.TODO(), model.ConfigSnapshot{
				DeviceID:  deviceID,
				JobID:     uuid.New(),
				OrgID:     "acme",
				Config:    cfg,
				Checksum:  uuid.NewString(),
				CreatedAt: time.Now().Add(time.Duration(i) * time.Minute),
			})
			Expect(err).To(BeNil())
		}

		snapshot, err := store.Snapshot().Latest(context.TODO(), deviceID, "acme")
		Expect(err).To(BeNil())
		Expect(snapshot.Config).To(ContainSubstring("ntp server"))
	})

	It("does not leak captures across organizations", func() {
		deviceID := uuid.New()
		_, err := store.Snapshot().Create(context.TODO(), model.ConfigSnapshot{
			DeviceID:  deviceID,
			JobID:     uuid.New(),
			OrgID:     "acme",
			Config:    "hostname edge-01\n",
			CreatedAt: time.Now(),
		})
		Expect(err).To(BeNil())

		_, err = store.Snapshot().Latest(context.TODO(), deviceID, "globex")
		Expect(err).To(MatchError(st.ErrRecordNotFound))
	})

	It("reports a device with no captures", func() {
		_, err := store.Snapshot().Latest(context.TODO(), uuid.New(), "acme")
		Expect(err).To(MatchError(st.ErrRecordNotFound))
	})
})
