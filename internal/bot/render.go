package bot

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/congo-pay/rosca_bridge/internal/chain"
	"github.com/congo-pay/rosca_bridge/internal/txbuilder"
)

const helpText = `🤝 ROSCA bot commands

/start - link your wallet and open the menu
/browse - list active savings groups
/create - create a new group
/mygroups - groups you joined
/contribute - pay this cycle's contribution
/status - cycle status of your groups
/history - payout history of your groups
/cancel - abandon the current form
/help - this message`

func mainMenu() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔍 Browse groups", dataBrowse),
			tgbotapi.NewInlineKeyboardButtonData("➕ Create group", dataCreate),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("👥 My groups", dataMyGroups),
			tgbotapi.NewInlineKeyboardButtonData("💸 Contribute", dataContributeMenu),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📊 Status", dataStatus),
			tgbotapi.NewInlineKeyboardButtonData("❓ Help", dataHelp),
		),
	)
}

func linkKeyboard(url string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonURL("🔗 Link wallet", url)),
	)
}

func welcomeText(wallet string) string {
	if wallet == "" {
		return "👋 Welcome to the ROSCA bot.\n\nLink a wallet to create, join and contribute to savings groups. " +
			"Tap the button below and sign the message in your wallet."
	}
	return fmt.Sprintf("👋 Welcome back.\n\nLinked wallet: %s", wallet)
}

func notLinkedText() string {
	return "🔒 This needs a linked wallet. Use /start to link one."
}

func groupLine(g chain.GroupView) string {
	return fmt.Sprintf("#%d %s\n   %s per %s, %d/%d members",
		g.ID, g.Name, g.Contribution(), formatDays(g.CycleDuration), g.CurrentParticipants, g.MaxParticipants)
}

func browseView(groups []chain.GroupView) (string, *tgbotapi.InlineKeyboardMarkup) {
	if len(groups) == 0 {
		return "No active groups yet. Use /create to start one.", nil
	}
	var b strings.Builder
	b.WriteString("🔍 Active groups\n")
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(groups))
	for _, g := range groups {
		b.WriteString("\n")
		b.WriteString(groupLine(g))
		row := tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("ℹ️ #%d", g.ID), detailsData(g.ID)),
		)
		if !g.Full() {
			row = append(row, tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("✅ Join #%d", g.ID), joinData(g.ID)))
		}
		rows = append(rows, row)
	}
	markup := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return b.String(), &markup
}

func myGroupsView(groups []chain.MemberGroup) string {
	if len(groups) == 0 {
		return "You have not joined any group yet. Use /browse."
	}
	var b strings.Builder
	b.WriteString("👥 Your groups\n")
	for _, mg := range groups {
		b.WriteString("\n")
		b.WriteString(groupLine(mg.Group))
		b.WriteString("\n   ")
		b.WriteString(statusLine(mg.Status))
	}
	return b.String()
}

func statusLine(s chain.StatusView) string {
	if !s.Enrolled {
		return "⏳ join not confirmed on chain yet"
	}
	paid := "not paid this cycle"
	if s.ContributedThisCycle {
		paid = "paid this cycle"
	}
	payout := "no payout yet"
	if s.ReceivedPayout {
		payout = "payout received"
	}
	return fmt.Sprintf("%s, %d contributions, %s", paid, s.TotalContributions, payout)
}

func contributeMenu(groups []chain.MemberGroup) (string, *tgbotapi.InlineKeyboardMarkup) {
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, mg := range groups {
		if !mg.Status.Enrolled || mg.Status.ContributedThisCycle {
			continue
		}
		label := fmt.Sprintf("💸 %s (%s)", mg.Group.Name, mg.Group.Contribution())
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, contributeData(mg.Group.ID)),
		))
	}
	if len(rows) == 0 {
		return "Nothing to pay right now. 🎉", nil
	}
	markup := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return "Pick a group to contribute to:", &markup
}

func statusMenu(groups []chain.GroupView) (string, *tgbotapi.InlineKeyboardMarkup) {
	if len(groups) == 0 {
		return "You have not joined any group yet. Use /browse.", nil
	}
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(groups))
	for _, g := range groups {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("📊 %s", g.Name), groupStatusData(g.ID)),
		))
	}
	markup := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return "Pick a group:", &markup
}

func groupStatusView(v chain.GroupStatusView) string {
	var b strings.Builder
	g := v.Group
	fmt.Fprintf(&b, "📊 %s (#%d)\n", g.Name, g.ID)
	if g.Description != "" {
		fmt.Fprintf(&b, "%s\n", g.Description)
	}
	fmt.Fprintf(&b, "\nContribution: %s per %s\n", g.Contribution(), formatDays(g.CycleDuration))
	fmt.Fprintf(&b, "Members: %d/%d\n", g.CurrentParticipants, g.MaxParticipants)
	fmt.Fprintf(&b, "Contract: %s\n", g.Contract)

	if c := v.Cycle; c != nil {
		recipient := "not yet determined"
		if c.Recipient != "" {
			recipient = c.Recipient
		}
		fmt.Fprintf(&b, "\nCycle %d\nPool: %s\nContributions: %d\nRecipient: %s\nTime left: %s\n",
			c.Number, chain.FromWei(c.PoolWei), c.ContributionsMade, recipient, c.Remaining())
	} else {
		b.WriteString("\nCycle info unavailable right now.\n")
	}

	if v.Status != nil {
		fmt.Fprintf(&b, "\nYou: %s\n", statusLine(*v.Status))
	}
	if len(v.Participants) > 0 {
		b.WriteString("\nParticipants:\n")
		for _, p := range v.Participants {
			fmt.Fprintf(&b, "• %s\n", p)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func historyView(items []chain.GroupHistory) string {
	var b strings.Builder
	b.WriteString("📜 Payout history\n")
	for _, h := range items {
		fmt.Fprintf(&b, "\n%s (#%d)\n", h.Group.Name, h.Group.ID)
		if len(h.Payouts) == 0 {
			b.WriteString("   no payouts yet\n")
			continue
		}
		for _, p := range h.Payouts {
			fmt.Fprintf(&b, "   %s  %s → %s\n", p.Timestamp.UTC().Format("2006-01-02"), chain.FromWei(p.AmountWei), p.Recipient)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func payloadText(title string, p txbuilder.Payload) string {
	return fmt.Sprintf("%s\n\nSign and send this transaction from your wallet:\n\nFrom: %s\nTo: %s\nValue: %s\nGas (estimate): %d\nChain ID: %d\nData: %s",
		title, p.From, p.To, p.Value, p.GasEstimate, p.ChainID, p.Data)
}

func formatDays(seconds uint64) string {
	days := seconds / 86400
	if days == 1 {
		return "1 day"
	}
	if days == 0 {
		return fmt.Sprintf("%ds", seconds)
	}
	return fmt.Sprintf("%d days", days)
}
