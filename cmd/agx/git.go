package main

import (
	"context"
	"os/exec"
	"strings"
	"time"
)

// gitUserName returns `git config --get user.name`, or "" when git is
// missing or the name is unset.
func gitUserName() string {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	out, err := exec.CommandContext(ctx, "git", "config", "--get", "user.name").Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}
