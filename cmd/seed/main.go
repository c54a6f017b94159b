package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"go.uber.org/zap"

	"servicehub/internal/app"
	"servicehub/internal/config"
	"servicehub/internal/database"
	"servicehub/internal/domain/availability"
	"servicehub/internal/domain/booking"
	"servicehub/internal/domain/ledger"
	"servicehub/internal/domain/notification"
	"servicehub/internal/domain/worker"
	"servicehub/internal/logger"
)

type demoWorker struct {
	id      int64
	name    string
	service string
	fixed   []availability.FixedSlotInput
}

var demoWorkers = []demoWorker{
	{
		id: 10, name: "Aida Nurlanovna", service: "Plumbing",
		fixed: []availability.FixedSlotInput{
			{Day: time.Monday, TimeRange: "09:00-11:00", Enabled: true},
			{Day: time.Monday, TimeRange: "14:00-16:00", Enabled: true},
			{Day: time.Wednesday, TimeRange: "10:00-12:00", Enabled: true},
			{Day: time.Friday, TimeRange: "09:00-10:30", Enabled: true},
		},
	},
	{
		id: 11, name: "Bekzat Omarov", service: "Electrical repair",
		fixed: []availability.FixedSlotInput{
			{Day: time.Tuesday, TimeRange: "08:00-10:00", Enabled: true},
			{Day: time.Thursday, TimeRange: "13:00-15:00", Enabled: true},
			{Day: time.Saturday, TimeRange: "10:00-12:00", Enabled: true},
		},
	},
	{
		id: 12, name: "Dina Seitkali", service: "House cleaning",
		fixed: []availability.FixedSlotInput{
			{Day: time.Monday, TimeRange: "12:00-15:00", Enabled: true},
			{Day: time.Sunday, TimeRange: "10:00-13:00", Enabled: true},
		},
	},
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logg := logger.New(cfg.AppEnv)
	ctx := context.Background()

	db, err := database.Connect(cfg.DatabaseURL, logg)
	if err != nil {
		log.Fatal("DB connection failed:", err)
	}
	if err := database.Migrate(ctx, db, logg, app.Models()...); err != nil {
		log.Fatal("Migration failed:", err)
	}

	// Cleanup old data (in safe order to avoid foreign key errors)
	log.Println("Cleaning old data...")
	for _, table := range []string{"payments", "bookings", "unavailable_dates", "date_slots", "fixed_slots", "workers"} {
		if err := db.Exec("DELETE FROM " + table).Error; err != nil {
			log.Fatalf("cleanup %s failed: %v", table, err)
		}
	}
	if err := db.Model(&ledger.PlatformWallet{}).Where("id = ?", ledger.PlatformWalletID).
		Updates(map[string]any{"balance_amount": 0, "total_earnings": 0, "total_withdraw": 0}).Error; err != nil {
		log.Fatalf("reset platform wallet failed: %v", err)
	}

	a := app.New(app.Deps{
		Config:     cfg,
		DB:         db,
		Logger:     zap.NewNop(),
		Dispatcher: notification.NewLogDispatcher(zap.NewNop()),
	})

	log.Println("Creating workers and weekly templates...")
	for _, w := range demoWorkers {
		if _, err := a.Workers.Register(ctx, worker.RegisterInput{ID: w.id, Name: w.name, ServiceName: w.service}); err != nil {
			log.Fatalf("register worker %d: %v", w.id, err)
		}
		if _, err := a.Availability.ReplaceFixedSlots(ctx, w.id, w.fixed); err != nil {
			log.Fatalf("fixed slots for worker %d: %v", w.id, err)
		}
	}

	log.Println("Creating date slots and blocked dates...")
	today := a.Availability.Now()
	tomorrow := availability.FormatDate(today.AddDate(0, 0, 1))
	dayAfter := availability.FormatDate(today.AddDate(0, 0, 2))

	extra, err := a.Availability.AddDateSlots(ctx, 10, tomorrow, []string{"17:00-18:00", "18:00-19:30"})
	if err != nil {
		log.Fatalf("date slots: %v", err)
	}
	if err := a.Availability.BlockDate(ctx, 12, dayAfter); err != nil {
		log.Fatalf("block date: %v", err)
	}

	log.Println("Creating demo bookings...")
	ref, err := availability.ParseSlotID(fmt.Sprint(extra[0].ID), today.AddDate(0, 0, 1))
	if err != nil {
		log.Fatal(err)
	}
	online, err := a.Bookings.Reserve(ctx, booking.ReserveInput{
		WorkerID:      10,
		UserID:        100,
		Date:          tomorrow,
		Slot:          ref,
		ServiceName:   "Kitchen sink repair",
		Amount:        15000,
		PaymentMethod: booking.PaymentMethodOnline,
	})
	if err != nil {
		log.Fatalf("reserve online booking: %v", err)
	}
	if _, err := a.Ledger.ConfirmPayment(ctx, ledger.ConfirmInput{
		BookingID:   online.ID,
		Amount:      online.Amount,
		ExternalRef: fmt.Sprintf("seed-%d", online.ID),
	}); err != nil {
		log.Fatalf("confirm payment: %v", err)
	}
	if _, err := a.Bookings.Accept(ctx, online.ID, 10); err != nil {
		log.Fatalf("accept booking: %v", err)
	}

	ref, err = availability.ParseSlotID(fmt.Sprint(extra[1].ID), today.AddDate(0, 0, 1))
	if err != nil {
		log.Fatal(err)
	}
	cash, err := a.Bookings.Reserve(ctx, booking.ReserveInput{
		WorkerID:      10,
		UserID:        101,
		Date:          tomorrow,
		Slot:          ref,
		ServiceName:   "Boiler check",
		Amount:        8000,
		PaymentMethod: booking.PaymentMethodCOD,
	})
	if err != nil {
		log.Fatalf("reserve cash booking: %v", err)
	}
	if _, err := a.Ledger.RecordCashPayment(ctx, cash.ID); err != nil {
		log.Fatalf("record cash payment: %v", err)
	}

	log.Println("Seed completed!")
	log.Printf("Workers: %d, online booking #%d (paid), cash booking #%d (awaiting cash)", len(demoWorkers), online.ID, cash.ID)
}
