package domain

// Operator is the club officer driving a command.
type Operator struct {
	TelegramID int64
	Name       string
	Username   string
}

// Mention returns a display handle for the operator.
func (o Operator) Mention() string {
	if o.Username != "" {
		return "@" + o.Username
	}
	return o.Name
}
