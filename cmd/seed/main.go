package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/ikkim/catalog-review-backend/config"
	"github.com/ikkim/catalog-review-backend/internal/app/model"
	"github.com/ikkim/catalog-review-backend/internal/app/repository"
	"github.com/ikkim/catalog-review-backend/internal/app/service"
	"github.com/ikkim/catalog-review-backend/internal/db"
)

func main() {
	// 명령줄 인자 확인
	if len(os.Args) < 2 {
		log.Fatal("Usage: go run cmd/seed/main.go <xlsx_file_path>")
	}

	filePath := os.Args[1]

	// 설정 로드
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	// DB 연결
	gdb, err := db.Open(&cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer db.Close(gdb)

	if err := db.Migrate(gdb, db.MigrateOptions{EnforceUniqueness: cfg.Review.EnforceUniqueness}); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}

	reviewService := service.NewReviewService(
		repository.NewReviewRepository(gdb),
		service.ReviewPolicy{
			DefaultStatus:     model.ReviewStatus(cfg.Review.DefaultStatus),
			EnforceUniqueness: cfg.Review.EnforceUniqueness,
		},
		nil,
	)

	// XLSX 파일 읽기
	fmt.Printf("Reading XLSX file: %s\n", filePath)
	f, err := os.Open(filePath)
	if err != nil {
		log.Fatal("Failed to open XLSX:", err)
	}
	rows, rowErrs, err := service.ReadReviewsXLSX(f)
	f.Close()
	if err != nil {
		log.Fatal("Failed to read XLSX:", err)
	}

	for _, rowErr := range rowErrs {
		fmt.Printf("Skipping %v\n", rowErr)
	}
	fmt.Printf("Total reviews to import: %d (skipped: %d)\n", len(rows), len(rowErrs))

	// 사용자 확인
	fmt.Print("Do you want to proceed with the import? (yes/no): ")
	var confirm string
	fmt.Scanln(&confirm)
	if confirm != "yes" && confirm != "y" {
		fmt.Println("Import cancelled.")
		return
	}

	// 한 건씩 검증 후 저장
	ctx := context.Background()
	imported, failed := 0, 0
	for _, row := range rows {
		if _, err := reviewService.CreateReview(ctx, row.Input); err != nil {
			failed++
			fmt.Printf("row %d: %v\n", row.Row, err)
			continue
		}
		imported++
	}

	fmt.Println("Import completed!")
	fmt.Printf("Imported: %d, failed: %d, skipped: %d\n", imported, failed, len(rowErrs))
}
