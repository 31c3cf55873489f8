package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		telegramCommandsReceivedTotal,
		telegramEditsTotal,
	)
}

var (
	telegramCommandsReceivedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "telegram_commands_received_total",
			Help: "Counts incoming messages and commands from users.",
		},
		[]string{"command"},
	)

	telegramEditsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "telegram_message_edits_total",
			Help: "Streaming message edits sent to Telegram, by outcome.",
		},
		[]string{"result"},
	)
)

func IncTelegramCommand(command string) {
	telegramCommandsReceivedTotal.WithLabelValues(norm(command)).Inc()
}

func IncTelegramEdit(result string) {
	telegramEditsTotal.WithLabelValues(norm(result)).Inc()
}
