package care

// SourceType tags an event with the collection it was drawn from.
type SourceType string

const (
	SourceAppointment  SourceType = "appointment"
	SourceConsultation SourceType = "consultation"
	SourceMedication   SourceType = "medication"
	SourceReminder     SourceType = "reminder"
	SourceRoutine      SourceType = "routine"
	SourceActivity     SourceType = "activity"
)

// SourceTypes lists every source in the order sections are rendered.
var SourceTypes = []SourceType{
	SourceAppointment,
	SourceConsultation,
	SourceMedication,
	SourceReminder,
	SourceRoutine,
	SourceActivity,
}

// DefaultTime is the sentinel for records stored without a time of day.
const DefaultTime = "00:00"

// EventBase is the common shape every source adapter normalizes into.
type EventBase struct {
	ID        string     `json:"id"`
	Source    SourceType `json:"sourceType"`
	OwnerID   string     `json:"ownerId"`
	Title     string     `json:"title"`
	Date      string     `json:"date"`           // YYYY-MM-DD
	Time      string     `json:"time"`           // HH:MM, DefaultTime when absent
	Status    string     `json:"status,omitempty"`
	Completed bool       `json:"isCompleted"`
}

// Event is the tagged union over the six per-source event types. Each
// concrete type adds the fields its collection actually stores; downstream
// code works against the base.
type Event interface {
	Base() EventBase
}

// AppointmentEvent is a scheduled appointment.
type AppointmentEvent struct {
	EventBase
	Location string `json:"location,omitempty"`
	Doctor   string `json:"doctor,omitempty"`
	Notes    string `json:"notes,omitempty"`
}

func (e AppointmentEvent) Base() EventBase { return e.EventBase }

// ConsultationEvent is a doctor consultation, possibly remote.
type ConsultationEvent struct {
	EventBase
	Doctor      string `json:"doctor,omitempty"`
	Specialty   string `json:"specialty,omitempty"`
	MeetingLink string `json:"meetingLink,omitempty"`
}

func (e ConsultationEvent) Base() EventBase { return e.EventBase }

// MedicationEvent is one scheduled medication intake.
type MedicationEvent struct {
	EventBase
	Dosage       string `json:"dosage,omitempty"`
	Frequency    string `json:"frequency,omitempty"`
	Instructions string `json:"instructions,omitempty"`
}

func (e MedicationEvent) Base() EventBase { return e.EventBase }

// ReminderEvent is a one-off reminder; its filter field is a full ISO
// datetime rather than a bare date.
type ReminderEvent struct {
	EventBase
	DateTime string `json:"datetime,omitempty"`
	Repeat   string `json:"repeat,omitempty"`
}

func (e ReminderEvent) Base() EventBase { return e.EventBase }

// RoutineEvent is a recurring daily-living routine.
type RoutineEvent struct {
	EventBase
	Frequency string   `json:"frequency,omitempty"`
	Days      []string `json:"days,omitempty"`
}

func (e RoutineEvent) Base() EventBase { return e.EventBase }

// ActivityEvent is a community activity the owner registered for.
type ActivityEvent struct {
	EventBase
	Location     string `json:"location,omitempty"`
	RegisteredAt string `json:"registeredAt,omitempty"`
}

func (e ActivityEvent) Base() EventBase { return e.EventBase }
