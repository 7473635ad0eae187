package main

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"betting-bff-go/logcolors"

	log "github.com/sirupsen/logrus"
)

// newTransactionID generates a unique identifier for audit trails:
// a timestamp prefix plus random hex.
func newTransactionID() string {
	var buf [6]byte
	if _, err := rand.Read(buf[:]); err != nil {
		// Fall back to nanosecond entropy; uniqueness is best-effort here
		return fmt.Sprintf("txn_%d", time.Now().UnixNano())
	}
	return fmt.Sprintf("txn_%d_%s", time.Now().Unix(), hex.EncodeToString(buf[:]))
}

// confirmationCode derives the user-facing confirmation code for a bet.
func confirmationCode(betID int) string {
	return fmt.Sprintf("BET%06d", betID)
}

// hashToken returns a short fingerprint of a bearer token for audit logs.
// Never log the token itself.
func hashToken(token string) string {
	if token == "" {
		return "anonymous"
	}
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])[:16]
}

// auditLog records a betting operation with its transaction metadata.
func auditLog(operation, transactionID, tokenHash string, fields log.Fields) {
	entry := log.WithFields(log.Fields{
		"operation":      operation,
		"transaction_id": transactionID,
		"user":           tokenHash,
	})
	if len(fields) > 0 {
		entry = entry.WithFields(fields)
	}
	entry.Infof("%s %s", logcolors.LogAudit, operation)
}
