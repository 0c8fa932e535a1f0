package dbtest

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/campusprint/campusprint-backend/pkg/db/models"
	"github.com/campusprint/campusprint-backend/pkg/enums"
)

// Campus is a college with one verified student and one shop.
type Campus struct {
	College models.College
	Student models.User
	Owner   models.User
	Shop    models.Stationary
}

// SeedCampus inserts a college, a student, an owner and the owner's shop.
func SeedCampus(t *testing.T, conn *gorm.DB, canDeliver bool) Campus {
	t.Helper()

	suffix := uuid.NewString()[:8]
	college := models.College{
		Name:    "College " + suffix,
		Email:   fmt.Sprintf("admin-%s@college.test", suffix),
		State:   "Karnataka",
		Country: "India",
	}
	mustCreate(t, conn, &college)

	student := SeedUser(t, conn, enums.UserRoleStudent, &college.ID)
	owner := SeedUser(t, conn, enums.UserRoleOwner, &college.ID)

	shop := models.Stationary{
		CollegeID:   college.ID,
		OwnerID:     owner.ID,
		Name:        "Print Hub " + suffix,
		Email:       fmt.Sprintf("shop-%s@college.test", suffix),
		CountryCode: "+91",
		Phone:       fmt.Sprintf("98%08d", uuid.New().ID()%100000000),
		Address:     "Block A",
		IsActive:    true,
		CanDeliver:  canDeliver,
	}
	mustCreate(t, conn, &shop)
	mustCreate(t, conn, &models.PrintingRate{StationaryID: shop.ID, ColorRate: 10, BWRate: 2})

	return Campus{College: college, Student: student, Owner: owner, Shop: shop}
}

// SeedUser inserts a verified active user with the given role.
func SeedUser(t *testing.T, conn *gorm.DB, role enums.UserRole, collegeID *uuid.UUID) models.User {
	t.Helper()
	user := models.User{
		Name:         string(role) + " user",
		Email:        fmt.Sprintf("%s-%s@campus.test", role, uuid.NewString()[:8]),
		PasswordHash: "hash",
		Role:         role,
		CollegeID:    collegeID,
		IsVerified:   true,
		IsActive:     true,
	}
	mustCreate(t, conn, &user)
	return user
}

func mustCreate(t *testing.T, conn *gorm.DB, value any) {
	t.Helper()
	if err := conn.Create(value).Error; err != nil {
		t.Fatalf("seed %T: %v", value, err)
	}
}

// OrderSpec describes an order to seed. Zero values fall back to a PENDING
// TAKEAWAY order of 100 with one item and OTP 123456.
type OrderSpec struct {
	Status     enums.OrderStatus
	OrderType  enums.OrderType
	TotalPrice int64
	OTP        string
	CreatedAt  time.Time
}

// SeedOrder inserts an order placed by the campus student at the campus shop.
func SeedOrder(t *testing.T, conn *gorm.DB, campus Campus, spec OrderSpec) models.Order {
	t.Helper()
	if spec.Status == "" {
		spec.Status = enums.OrderStatusPending
	}
	if spec.OrderType == "" {
		spec.OrderType = enums.OrderTypeTakeaway
	}
	if spec.TotalPrice == 0 {
		spec.TotalPrice = 100
	}
	if spec.OTP == "" {
		spec.OTP = "123456"
	}
	order := models.Order{
		UserID:       campus.Student.ID,
		StationaryID: campus.Shop.ID,
		CollegeID:    campus.College.ID,
		Status:       spec.Status,
		OrderType:    spec.OrderType,
		TotalPrice:   spec.TotalPrice,
		OTP:          spec.OTP,
		CreatedAt:    spec.CreatedAt,
		Items: []models.OrderItem{{
			Name:     "notes.pdf",
			FileURL:  "https://cdn.test/notes.pdf",
			FileKey:  "cart/notes.pdf",
			FileType: "pdf",
			Quantity: 1,
			Price:    spec.TotalPrice,
		}},
	}
	if spec.OrderType == enums.OrderTypeDelivery {
		address := "Hostel 4"
		fee := int64(20)
		order.DeliveryAddress = &address
		order.DeliveryFee = &fee
	}
	mustCreate(t, conn, &order)
	return order
}
