package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/shinyyama/voxelhub-backend/internal/config"
	"github.com/shinyyama/voxelhub-backend/internal/db"
	"github.com/shinyyama/voxelhub-backend/internal/logging"
	"github.com/shinyyama/voxelhub-backend/internal/model"
	"github.com/shinyyama/voxelhub-backend/internal/repository"
	"github.com/shinyyama/voxelhub-backend/internal/storage"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type seedMaker struct {
	UID       string
	Name      string
	Location  string
	Printers  string
	Materials string
	Dest      model.PayoutDestination
}

type seedProject struct {
	Owner    string
	Title    string
	Material string
	Size     [3]float64
	Quantity int
}

type seedDesign struct {
	Maker string
	Title string
	Desc  string
	Price string
}

var (
	clients = []model.User{
		{UID: "demo-client-1", Role: model.RoleClient, DisplayName: "Clara Client"},
		{UID: "demo-client-2", Role: model.RoleClient, DisplayName: "Jonas Keller"},
	}
	makers = []seedMaker{
		{UID: "demo-maker-1", Name: "Ada Prints", Location: "Berlin", Printers: "Prusa MK4, Prusa XL", Materials: "PLA, PETG, ASA",
			Dest: model.StripeDestination{ConnectAccountID: "acct_1DemoMakerAda"}},
		{UID: "demo-maker-2", Name: "Layer Lab", Location: "Lyon", Printers: "Bambu Lab X1C", Materials: "PLA, PA-CF, TPU",
			Dest: model.PayPalDestination{AccountID: "layerlab@example.com"}},
		{UID: "demo-maker-3", Name: "Resin Works", Location: "Milan", Printers: "Elegoo Saturn 3", Materials: "Standard resin, Tough resin",
			Dest: model.BankDestination{IBAN: "DE89370400440532013000", AccountHolder: "Resin Works GmbH"}},
	}
	projects = []seedProject{
		{Owner: "demo-client-1", Title: "Replacement dishwasher wheel", Material: "PETG", Size: [3]float64{32, 32, 12}, Quantity: 4},
		{Owner: "demo-client-1", Title: "Camera cold shoe mount", Material: "PA-CF", Size: [3]float64{40, 22, 18}, Quantity: 1},
		{Owner: "demo-client-2", Title: "Drone propeller guard", Material: "TPU", Size: [3]float64{180, 180, 25}, Quantity: 2},
		{Owner: "demo-client-2", Title: "Miniature terrain set", Material: "Standard resin", Size: [3]float64{120, 80, 60}, Quantity: 1},
	}
	designs = []seedDesign{
		{Maker: "demo-maker-1", Title: "Parametric cable clip", Desc: "Snap-fit clip for 4-8 mm cables, prints without supports.", Price: "2.50"},
		{Maker: "demo-maker-2", Title: "Headphone hook", Desc: "Under-desk hook, screw or adhesive mount.", Price: "4.00"},
		{Maker: "demo-maker-3", Title: "Dice tower", Desc: "Three-baffle dice tower, resin optimised.", Price: "7.90"},
	}
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("seed failed: %v", err)
	}
}

func run() error {
	ctx := context.Background()
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger, err := logging.Setup(cfg)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	gdb, err := db.Connect(cfg)
	if err != nil {
		return fmt.Errorf("connect db: %w", err)
	}
	if err := db.Migrate(gdb); err != nil {
		return err
	}

	canSeed, err := shouldSeed(ctx, gdb)
	if err != nil {
		return err
	}
	if !canSeed {
		zap.L().Info("users already exist; skipping seed (set FORCE_SEED=true to override)")
		return nil
	}

	var blobs storage.BlobStore = storage.NewMemoryStore()
	if cfg.StorageBucket != "" {
		gcs, err := storage.NewGCSStore(ctx, cfg.StorageBucket, cfg.CredentialsFile)
		if err != nil {
			return err
		}
		defer gcs.Close()
		blobs = gcs
	}

	return repository.NewTransactor(gdb).Transaction(ctx, func(tx *gorm.DB) error {
		users := repository.NewUserRepository(tx)
		profiles := repository.NewMakerProfileRepository(tx)
		projectRepo := repository.NewProjectRepository(tx)
		designRepo := repository.NewDesignRepository(tx)

		for i := range clients {
			if err := users.Save(ctx, &clients[i]); err != nil {
				return fmt.Errorf("save client %s: %w", clients[i].UID, err)
			}
		}
		for _, m := range makers {
			if err := users.Save(ctx, &model.User{UID: m.UID, Role: model.RoleMaker, DisplayName: m.Name}); err != nil {
				return fmt.Errorf("save maker %s: %w", m.UID, err)
			}
			p := &model.MakerProfile{
				UID:         m.UID,
				DisplayName: m.Name,
				Location:    m.Location,
				Printers:    m.Printers,
				Materials:   m.Materials,
			}
			p.SetDestination(m.Dest)
			if err := profiles.Save(ctx, p); err != nil {
				return fmt.Errorf("save profile %s: %w", m.UID, err)
			}
		}
		for idx, sp := range projects {
			name := slug(sp.Title) + ".stl"
			key := fmt.Sprintf("projects/%s/seed-%d/%s", sp.Owner, idx+1, name)
			body := cubeSTL(slug(sp.Title), sp.Size)
			u, err := blobs.Put(ctx, key, "model/stl", strings.NewReader(body))
			if err != nil {
				return fmt.Errorf("upload %s: %w", key, err)
			}
			p := &model.Project{
				OwnerUID: sp.Owner,
				Title:    sp.Title,
				Material: sp.Material,
				WidthMM:  sp.Size[0],
				DepthMM:  sp.Size[1],
				HeightMM: sp.Size[2],
				Quantity: sp.Quantity,
				Status:   model.ProjectStatusActive,
				Files: []model.ProjectFile{{
					FileName:  name,
					ObjectKey: key,
					URL:       u,
					SizeBytes: int64(len(body)),
				}},
			}
			if err := projectRepo.Create(ctx, p); err != nil {
				return fmt.Errorf("insert project %q: %w", sp.Title, err)
			}
		}
		for _, sd := range designs {
			d := &model.Design{
				MakerUID:    sd.Maker,
				Title:       sd.Title,
				Description: sd.Desc,
				Price:       decimal.RequireFromString(sd.Price),
			}
			if err := designRepo.Create(ctx, d); err != nil {
				return fmt.Errorf("insert design %q: %w", sd.Title, err)
			}
		}
		zap.L().Info("seeded demo data",
			zap.Int("users", len(clients)+len(makers)),
			zap.Int("projects", len(projects)),
			zap.Int("designs", len(designs)))
		return nil
	})
}

func shouldSeed(ctx context.Context, gdb *gorm.DB) (bool, error) {
	var cnt int64
	if err := gdb.WithContext(ctx).Model(&model.User{}).Count(&cnt).Error; err != nil {
		return false, fmt.Errorf("count users: %w", err)
	}
	if cnt == 0 {
		return true, nil
	}
	return strings.EqualFold(os.Getenv("FORCE_SEED"), "true"), nil
}

func slug(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), " ", "-")
}

// cubeSTL renders an ASCII STL box of the given size as a stand-in model.
func cubeSTL(name string, size [3]float64) string {
	x, y, z := size[0], size[1], size[2]
	v := [8][3]float64{{0, 0, 0}, {x, 0, 0}, {x, y, 0}, {0, y, 0}, {0, 0, z}, {x, 0, z}, {x, y, z}, {0, y, z}}
	faces := [12][3]int{
		{0, 2, 1}, {0, 3, 2}, {4, 5, 6}, {4, 6, 7},
		{0, 1, 5}, {0, 5, 4}, {1, 2, 6}, {1, 6, 5},
		{2, 3, 7}, {2, 7, 6}, {3, 0, 4}, {3, 4, 7},
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "solid %s\n", name)
	for _, f := range faces {
		sb.WriteString("  facet normal 0 0 0\n    outer loop\n")
		for _, i := range f {
			fmt.Fprintf(&sb, "      vertex %g %g %g\n", v[i][0], v[i][1], v[i][2])
		}
		sb.WriteString("    endloop\n  endfacet\n")
	}
	fmt.Fprintf(&sb, "endsolid %s\n", name)
	return sb.String()
}
