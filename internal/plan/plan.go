package plan

import "errors"

var ErrUnknownPlan = errors.New("unknown subscription plan")

type ID string

const (
	Broker     ID = "broker"
	Owner      ID = "owner"
	RoomSharer ID = "room_sharer"
)

// Plan is a monthly subscription tier. Amount is in paise.
type Plan struct {
	ID          ID     `json:"id"`
	Name        string `json:"name"`
	Amount      int64  `json:"amount"`
	Currency    string `json:"currency"`
	Description string `json:"description"`
}

var catalog = []Plan{
	{
		ID:          Broker,
		Name:        "Broker Plan",
		Amount:      100000,
		Currency:    "INR",
		Description: "Monthly subscription for brokers",
	},
	{
		ID:          Owner,
		Name:        "Owner Plan",
		Amount:      80000,
		Currency:    "INR",
		Description: "Monthly subscription for property owners",
	},
	{
		ID:          RoomSharer,
		Name:        "Room Sharer Plan",
		Amount:      50000,
		Currency:    "INR",
		Description: "Monthly subscription for room sharers",
	},
}

// All returns a copy of the catalog in display order.
func All() []Plan {
	plans := make([]Plan, len(catalog))
	copy(plans, catalog)
	return plans
}

func Lookup(id string) (Plan, error) {
	for _, p := range catalog {
		if string(p.ID) == id {
			return p, nil
		}
	}
	return Plan{}, ErrUnknownPlan
}

func Valid(id string) bool {
	_, err := Lookup(id)
	return err == nil
}
