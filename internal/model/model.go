package model

import "time"

type Role string

const (
	RoleAdmin   Role = "admin"
	RoleDoctor  Role = "doctor"
	RolePatient Role = "patient"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleDoctor, RolePatient:
		return true
	}
	return false
}

type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Role         Role      `json:"role"`
	Specialty    string    `json:"specialty,omitempty"`
	PasswordHash string    `json:"passwordHash,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Appointment is one scheduled visit. Date is a DD/MM/YYYY string and Time a
// half-hour slot token such as "09:30"; neither is stored as a time.Time.
type Appointment struct {
	ID                 string    `json:"id"`
	PatientID          string    `json:"patientId"`
	PatientName        string    `json:"patientName"`
	DoctorID           string    `json:"doctorId"`
	DoctorName         string    `json:"doctorName"`
	Date               string    `json:"date"`
	Time               string    `json:"time"`
	Specialty          string    `json:"specialty"`
	Status             Status    `json:"status"`
	CancellationReason string    `json:"cancellationReason,omitempty"`
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

type NotificationType string

const (
	NotificationAppointmentConfirmed NotificationType = "appointment_confirmed"
	NotificationAppointmentCancelled NotificationType = "appointment_cancelled"
	NotificationAppointmentReminder  NotificationType = "appointment_reminder"
	NotificationGeneral              NotificationType = "general"
)

func (t NotificationType) Valid() bool {
	switch t {
	case NotificationAppointmentConfirmed, NotificationAppointmentCancelled,
		NotificationAppointmentReminder, NotificationGeneral:
		return true
	}
	return false
}

// Notification is addressed to a single user. AppointmentID is a lookup-only
// back reference and may point at an appointment that no longer exists.
type Notification struct {
	ID            string           `json:"id"`
	UserID        string           `json:"userId"`
	Title         string           `json:"title"`
	Message       string           `json:"message"`
	Type          NotificationType `json:"type"`
	Read          bool             `json:"read"`
	CreatedAt     time.Time        `json:"createdAt"`
	AppointmentID string           `json:"appointmentId,omitempty"`
}
