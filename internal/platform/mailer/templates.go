package mailer

import (
	"fmt"
	"html"
	"strings"
)

func CourseCompleted(toEmail, toName, courseTitle string) Message {
	name := strings.TrimSpace(toName)
	if name == "" {
		name = "there"
	}
	title := strings.TrimSpace(courseTitle)
	return Message{
		ToEmail: toEmail,
		ToName:  toName,
		Subject: fmt.Sprintf("You completed %s", title),
		Text:    fmt.Sprintf("Hi %s,\n\nCongratulations on completing %s.\n", name, title),
		HTML: fmt.Sprintf("<p>Hi %s,</p><p>Congratulations on completing <strong>%s</strong>.</p>",
			html.EscapeString(name), html.EscapeString(title)),
	}
}
