package shared

import "fmt"

// ShelfEditLockKey builds the redis key guarding a shelf's single open edit session.
func ShelfEditLockKey(shelfCode string) string {
	return fmt.Sprintf("shelfboard:shelf:%s:edit-lock", shelfCode)
}

// EditSessionKey builds the redis key holding an edit session payload.
func EditSessionKey(sessionID string) string {
	return fmt.Sprintf("shelfboard:edit:%s", sessionID)
}
