package dynamodb

import "fmt"

// Single-table layout. Every item carries PK/SK; GSI1 and GSI2 give the
// per-user views (a pair has two users, so pair-scoped items project
// into both indexes).
//
//	PAIR#<pairid>  REQUEST#<requestid>   connection request
//	PAIR#<pairid>  PENDING               pending request pointer (at most one)
//	PAIR#<pairid>  EDGE                  peer edge
//	PAIR#<pairid>  CONV                  conversation metadata, NextSeq, read markers
//	PAIR#<pairid>  MSG#<seq, zero-padded> one message
//	USER#<userid>  TAG#<tag>             tag membership (GSI1: TAG#<tag> -> users)
//	USER#<userid>  PROFILE               profile snapshot
//	LOCK#<pairid>  LOCK                  pair lock record
const (
	gsi1Name = "GSI1"
	gsi2Name = "GSI2"

	skPending = "PENDING"
	skEdge    = "EDGE"
	skConv    = "CONV"
	skProfile = "PROFILE"
)

// seqKeyWidth pads message sort keys so lexicographic order matches
// numeric order.
const seqKeyWidth = 12

// maxMessageSK is the upper bound of the message key range, keeping
// range queries from straying into other item types in the partition.
const maxMessageSK = "MSG#999999999999"

func pairPK(pairID string) string   { return fmt.Sprintf("PAIR#%s", pairID) }
func userKey(userID string) string  { return fmt.Sprintf("USER#%s", userID) }
func tagKey(tag string) string      { return fmt.Sprintf("TAG#%s", tag) }
func requestSK(id string) string    { return fmt.Sprintf("REQUEST#%s", id) }
func messageSK(seq uint64) string   { return fmt.Sprintf("MSG#%0*d", seqKeyWidth, seq) }
func requestGSIPK(id string) string { return fmt.Sprintf("REQUEST#%s", id) }

func pendingGSISK(createdAt, pairID string) string {
	return fmt.Sprintf("PENDING#%s#%s", createdAt, pairID)
}

func edgeGSISK(createdAt, pairID string) string {
	return fmt.Sprintf("EDGE#%s#%s", createdAt, pairID)
}

func convGSISK(createdAt, pairID string) string {
	return fmt.Sprintf("CONV#%s#%s", createdAt, pairID)
}
