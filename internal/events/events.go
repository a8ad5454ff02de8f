// Package events provides the typed event feed of the simulation.
// Every state change the engine makes is announced as exactly one Event.
package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/MRamiBalles/immolife/internal/domain/finance"
	"github.com/MRamiBalles/immolife/internal/domain/game"
	"github.com/MRamiBalles/immolife/internal/domain/property"
)

// EventType names an event on the feed.
type EventType string

const (
	EventTypePropertyBought     EventType = "propertyBought"
	EventTypePropertySold       EventType = "propertySold"
	EventTypePropertyRented     EventType = "propertyRented"
	EventTypePropertyRenovated  EventType = "propertyRenovated"
	EventTypeLoanApproved       EventType = "loanApproved"
	EventTypeDayAdvanced        EventType = "dayAdvanced"
	EventTypeMonthAdvanced      EventType = "monthAdvanced"
	EventTypeYearAdvanced       EventType = "yearAdvanced"
	EventTypeTimeSpeedChanged   EventType = "timeSpeedChanged"
	EventTypeNewPropertiesAdded EventType = "newPropertiesAdded"
	EventTypePropertiesRemoved  EventType = "propertiesRemoved"
	EventTypeGameSaved          EventType = "gameSaved"
	EventTypeGameLoaded         EventType = "gameLoaded"
	EventTypeSaveDeleted        EventType = "saveDeleted"
	EventTypeNewGameStarted     EventType = "newGameStarted"
)

// AllTypes lists every event type in declaration order.
var AllTypes = []EventType{
	EventTypePropertyBought, EventTypePropertySold, EventTypePropertyRented, EventTypePropertyRenovated,
	EventTypeLoanApproved, EventTypeDayAdvanced, EventTypeMonthAdvanced, EventTypeYearAdvanced,
	EventTypeTimeSpeedChanged, EventTypeNewPropertiesAdded, EventTypePropertiesRemoved,
	EventTypeGameSaved, EventTypeGameLoaded, EventTypeSaveDeleted, EventTypeNewGameStarted,
}

// Payload is implemented only by the payload structs of this package.
type Payload interface {
	EventType() EventType
	sealed()
}

// Event is an immutable record of one state change.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	GameDay   int       `json:"gameDay"` // total days elapsed when the event fired
	Payload   Payload   `json:"payload"`
}

// New wraps a payload into an Event stamped with a fresh id and the wall clock.
func New(gameDay int, p Payload) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      p.EventType(),
		Timestamp: time.Now(),
		GameDay:   gameDay,
		Payload:   p,
	}
}

type PropertyBought struct {
	Property property.Property `json:"property"`
}

type PropertySold struct {
	Property  property.Property `json:"property"`
	SalePrice int64             `json:"salePrice"`
}

type PropertyRented struct {
	Property property.Property `json:"property"`
	Tenant   property.Tenant   `json:"tenant"`
}

type PropertyRenovated struct {
	Property   property.Property   `json:"property"`
	Renovation property.Renovation `json:"renovation"`
}

type LoanApproved struct {
	Loan finance.Loan `json:"loan"`
}

type DayAdvanced struct {
	Day       int `json:"day"`
	Month     int `json:"month"`
	Year      int `json:"year"`
	TotalDays int `json:"totalDays"`
}

// MonthAdvanced carries the ledger of one settlement.
type MonthAdvanced struct {
	Month     int   `json:"month"`
	Year      int   `json:"year"`
	Income    int64 `json:"income"`
	Expenses  int64 `json:"expenses"`
	NetChange int64 `json:"netChange"`
}

type YearAdvanced struct {
	Year int `json:"year"`
}

type TimeSpeedChanged struct {
	Speed    game.TimeSpeed `json:"speed"`
	IsPaused bool           `json:"isPaused"`
}

type NewPropertiesAdded struct {
	Properties []property.Property `json:"properties"`
	Count      int                 `json:"count"`
}

type PropertiesRemoved struct {
	Properties []property.Property `json:"properties"`
	Count      int                 `json:"count"`
}

type GameSaved struct {
	SlotName  string `json:"slotName"`
	Timestamp int64  `json:"timestamp"` // epoch ms
}

type GameLoaded struct {
	SlotName  string          `json:"slotName"`
	GameState *game.GameState `json:"gameState"`
}

type SaveDeleted struct {
	SlotName string `json:"slotName"`
}

type NewGameStarted struct {
	GameState *game.GameState `json:"gameState"`
}

func (PropertyBought) EventType() EventType     { return EventTypePropertyBought }
func (PropertySold) EventType() EventType       { return EventTypePropertySold }
func (PropertyRented) EventType() EventType     { return EventTypePropertyRented }
func (PropertyRenovated) EventType() EventType  { return EventTypePropertyRenovated }
func (LoanApproved) EventType() EventType       { return EventTypeLoanApproved }
func (DayAdvanced) EventType() EventType        { return EventTypeDayAdvanced }
func (MonthAdvanced) EventType() EventType      { return EventTypeMonthAdvanced }
func (YearAdvanced) EventType() EventType       { return EventTypeYearAdvanced }
func (TimeSpeedChanged) EventType() EventType   { return EventTypeTimeSpeedChanged }
func (NewPropertiesAdded) EventType() EventType { return EventTypeNewPropertiesAdded }
func (PropertiesRemoved) EventType() EventType  { return EventTypePropertiesRemoved }
func (GameSaved) EventType() EventType          { return EventTypeGameSaved }
func (GameLoaded) EventType() EventType         { return EventTypeGameLoaded }
func (SaveDeleted) EventType() EventType        { return EventTypeSaveDeleted }
func (NewGameStarted) EventType() EventType     { return EventTypeNewGameStarted }

func (PropertyBought) sealed()     {}
func (PropertySold) sealed()       {}
func (PropertyRented) sealed()     {}
func (PropertyRenovated) sealed()  {}
func (LoanApproved) sealed()       {}
func (DayAdvanced) sealed()        {}
func (MonthAdvanced) sealed()      {}
func (YearAdvanced) sealed()       {}
func (TimeSpeedChanged) sealed()   {}
func (NewPropertiesAdded) sealed() {}
func (PropertiesRemoved) sealed()  {}
func (GameSaved) sealed()          {}
func (GameLoaded) sealed()         {}
func (SaveDeleted) sealed()        {}
func (NewGameStarted) sealed()     {}
