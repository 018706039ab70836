package db

import (
	"testing"

	"github.com/shinyyama/voxelhub-backend/internal/config"
	"github.com/shinyyama/voxelhub-backend/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildDSN(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.Config
		want string
	}{
		{
			"mysql tcp",
			config.Config{DBDriver: "mysql", DBUser: "u", DBPassword: "p", DBHost: "db", DBPort: "3306", DBName: "voxel"},
			"u:p@tcp(db:3306)/voxel?charset=utf8mb4&parseTime=True&loc=UTC",
		},
		{
			"mysql cloud sql",
			config.Config{DBDriver: "mysql", DBUser: "u", DBPassword: "p", InstanceConnectionName: "proj:eu:inst", DBName: "voxel"},
			"u:p@unix(/cloudsql/proj:eu:inst)/voxel?charset=utf8mb4&parseTime=True&loc=UTC",
		},
		{
			"postgres default port",
			config.Config{DBDriver: "postgres", DBUser: "u", DBPassword: "p", DBHost: "db", DBPort: "3306", DBName: "voxel"},
			"host=db port=5432 user=u password=p dbname=voxel sslmode=disable TimeZone=UTC",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BuildDSN(&tt.cfg))
		})
	}
}

func TestPartialIndexRejectsSecondAcceptedBid(t *testing.T) {
	conn, err := OpenMemory()
	require.NoError(t, err)

	first := model.Bid{ProjectID: 1, MakerUID: "m1", Price: decimal.NewFromInt(10), DeliveryDays: 3, Status: model.BidStatusAccepted}
	require.NoError(t, conn.Create(&first).Error)

	second := model.Bid{ProjectID: 1, MakerUID: "m2", Price: decimal.NewFromInt(12), DeliveryDays: 3, Status: model.BidStatusAccepted}
	err = conn.Create(&second).Error
	require.Error(t, err)
}

func TestPartialIndexAllowsRebidAfterRejection(t *testing.T) {
	conn, err := OpenMemory()
	require.NoError(t, err)

	rejected := model.Bid{ProjectID: 1, MakerUID: "m1", Price: decimal.NewFromInt(10), DeliveryDays: 3, Status: model.BidStatusRejected}
	require.NoError(t, conn.Create(&rejected).Error)
	rebid := model.Bid{ProjectID: 1, MakerUID: "m1", Price: decimal.NewFromInt(9), DeliveryDays: 3, Status: model.BidStatusPending}
	require.NoError(t, conn.Create(&rebid).Error)

	dup := model.Bid{ProjectID: 1, MakerUID: "m1", Price: decimal.NewFromInt(8), DeliveryDays: 3, Status: model.BidStatusPending}
	require.Error(t, conn.Create(&dup).Error)
}
