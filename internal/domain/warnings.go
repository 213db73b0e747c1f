package domain

// EvaluateWarning tests thresholds from highest to lowest and records and
// returns the first one that is met by the account's debt and not yet sent.
// At most one tag fires per evaluation even when several thresholds were
// crossed at once. Called only after debt increases (settlement).
func EvaluateWarning(a *Account) (WarningTag, bool) {
	for _, tag := range warningOrder {
		if a.DebtSeconds >= tag.Threshold() && !a.WarningsSent[tag] {
			if a.WarningsSent == nil {
				a.WarningsSent = make(map[WarningTag]bool)
			}
			a.WarningsSent[tag] = true
			return tag, true
		}
	}
	return "", false
}

// ResetWarnings recomputes the sent set directly from the current debt:
// a tag is marked sent iff debt still meets its threshold. Not incremental;
// clears tags the debt has dropped below so a re-crossing fires again, and
// backfills lower tags when debt sits past several at once. Called wherever
// debt decreases.
func ResetWarnings(a *Account) {
	sent := make(map[WarningTag]bool)
	for _, tag := range warningOrder {
		if a.DebtSeconds >= tag.Threshold() {
			sent[tag] = true
		}
	}
	a.WarningsSent = sent
}
