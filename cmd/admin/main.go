package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"sunportal/backend/internal/escalation"
	"sunportal/backend/internal/models"
	"sunportal/backend/internal/storage"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// demoUsers is the seed roster for local and demo deployments. Real
// deployments provision users from the institutional directory instead.
var demoUsers = []models.User{
	{ID: "demo-student", Name: "Asha Verma", Role: models.RoleStudent, Department: "CSE", Year: "3", RollNumber: "CS21B042", Email: "student@sunportal.edu"},
	{ID: "demo-student-2", Name: "Rahul Nair", Role: models.RoleStudent, Department: "CSE", Year: "2", RollNumber: "CS22B017", Email: "student2@sunportal.edu"},
	{ID: "demo-faculty", Name: "Dr Meera Rao", Role: models.RoleFaculty, Department: "CSE", EmployeeID: "F-1204", Email: "faculty@sunportal.edu"},
	{ID: "demo-hod", Name: "Prof S Iyer", Role: models.RoleHoD, Department: "CSE", EmployeeID: "F-0031", Email: "hod@sunportal.edu"},
	{ID: "demo-committee", Name: "Grievance Committee Chair", Role: models.RoleCommittee, Department: "Administration", EmployeeID: "A-0007", Email: "committee@sunportal.edu"},
	{ID: "demo-admin", Name: "Portal Admin", Role: models.RoleAdmin, Department: "Administration", EmployeeID: "A-0001", Email: "admin@sunportal.edu"},
	{ID: "demo-ombudsman", Name: "University Ombudsman", Role: models.RoleOmbudsman, Department: "Administration", EmployeeID: "A-0002", Email: "ombudsman@sunportal.edu"},
}

func usage() {
	fmt.Println("Usage: admin <command>")
	fmt.Println("  seed    create the demo user roster")
	fmt.Println("  sweep   run one deadline sweep pass")
	fmt.Println("  stats   print the dashboard counters")
	os.Exit(1)
}

func main() {
	_ = godotenv.Load()

	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	dsn := os.Getenv("DATABASE_DSN")
	if dsn == "" {
		dsn = "host=localhost user=user password=password dbname=sunportal port=5432 sslmode=disable"
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		logger.Fatal("failed to connect database", zap.Error(err))
	}

	// No Redis: the CLI works against the database alone.
	st := storage.NewService(db, nil, logger)
	if err := st.Migrate(); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}

	if len(os.Args) < 2 {
		usage()
	}
	ctx := context.Background()

	switch os.Args[1] {
	case "seed":
		for i := range demoUsers {
			if err := st.SaveUser(ctx, &demoUsers[i]); err != nil {
				logger.Fatal("failed to seed user", zap.String("email", demoUsers[i].Email), zap.Error(err))
			}
		}
		fmt.Printf("Seeded %d demo users.\n", len(demoUsers))

	case "sweep":
		sweeper := escalation.NewSweeper(st, st, logger)
		applied, err := sweeper.SweepOnce(ctx, time.Now())
		if err != nil {
			logger.Fatal("sweep failed", zap.Error(err))
		}
		fmt.Printf("Sweep complete: %d complaints settled.\n", applied)

	case "stats":
		stats, err := st.StatusCounts(ctx)
		if err != nil {
			logger.Fatal("failed to load stats", zap.Error(err))
		}
		fmt.Printf("Total:               %d\n", stats.Total)
		fmt.Printf("Pending Review:      %d\n", stats.Pending)
		fmt.Printf("Under Review:        %d\n", stats.UnderReview)
		fmt.Printf("Escalated:           %d\n", stats.Escalated)
		fmt.Printf("Resolved:            %d\n", stats.Resolved)
		fmt.Printf("Dismissed:           %d\n", stats.Dismissed)

	default:
		usage()
	}
}
