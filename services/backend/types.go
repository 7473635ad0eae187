package backend

import (
	"encoding/json"
	"time"
)

// envelope is the upstream API's standard response wrapper.
type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// Event is a sports event as returned by the upstream API.
type Event struct {
	ID              int       `json:"id"`
	Name            string    `json:"name"`
	TeamA           string    `json:"teamA"`
	TeamB           string    `json:"teamB"`
	TeamAOdds       float64   `json:"teamAOdds"`
	TeamBOdds       float64   `json:"teamBOdds"`
	EventDate       time.Time `json:"eventDate"`
	Status          string    `json:"status"`
	CanPlaceBets    bool      `json:"canPlaceBets"`
	TimeUntilEvent  string    `json:"timeUntilEvent"`
	TotalBetsAmount float64   `json:"totalBetsAmount"`
	TotalBetsCount  int       `json:"totalBetsCount"`
	CreatedAt       time.Time `json:"createdAt"`
}

// EventStats is per-event betting statistics from the upstream API.
type EventStats struct {
	TotalBets       int     `json:"totalBets"`
	TotalAmountBet  float64 `json:"totalAmountBet"`
	TeamAPercentage float64 `json:"teamAPercentage"`
	TeamBPercentage float64 `json:"teamBPercentage"`
}

// Bet is a user bet as returned by the upstream API.
type Bet struct {
	ID             int       `json:"id"`
	EventID        int       `json:"eventId"`
	EventName      string    `json:"eventName"`
	SelectedTeam   string    `json:"selectedTeam"`
	Amount         float64   `json:"amount"`
	Odds           float64   `json:"odds"`
	PotentialWin   float64   `json:"potentialWin"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"createdAt"`
	CanBeCancelled bool      `json:"canBeCancelled"`
	EventDate      time.Time `json:"eventDate"`
}

// BetCreation is the payload sent upstream when creating or previewing a bet.
type BetCreation struct {
	EventID      int     `json:"eventId"`
	SelectedTeam string  `json:"selectedTeam"`
	Amount       float64 `json:"amount"`
}

// BetPreview is the upstream preview of a bet before it is placed.
type BetPreview struct {
	EventID        int     `json:"eventId"`
	SelectedTeam   string  `json:"selectedTeam"`
	Amount         float64 `json:"amount"`
	CurrentOdds    float64 `json:"currentOdds"`
	PotentialWin   float64 `json:"potentialWin"`
	CurrentBalance float64 `json:"currentBalance"`
}

// BetStats is the per-user betting statistics from the upstream API.
type BetStats struct {
	TotalBets           int     `json:"totalBets"`
	ActiveBets          int     `json:"activeBets"`
	WonBets             int     `json:"wonBets"`
	LostBets            int     `json:"lostBets"`
	TotalAmountBet      float64 `json:"totalAmountBet"`
	TotalWinnings       float64 `json:"totalWinnings"`
	CurrentPotentialWin float64 `json:"currentPotentialWin"`
	WinRate             float64 `json:"winRate"`
	AverageBetAmount    float64 `json:"averageBetAmount"`
}

// UserProfile is the authenticated user's profile from the upstream API.
type UserProfile struct {
	ID        int     `json:"id"`
	Email     string  `json:"email"`
	FullName  string  `json:"fullName"`
	Balance   float64 `json:"balance"`
	TotalBets int     `json:"totalBets"`
}

// AuthData is the upstream response to register/login calls.
type AuthData struct {
	Token     string    `json:"token"`
	Email     string    `json:"email"`
	FullName  string    `json:"fullName"`
	Balance   float64   `json:"balance"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// RegisterRequest is the payload forwarded upstream on registration.
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"fullName"`
}

// LoginRequest is the payload forwarded upstream on login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
