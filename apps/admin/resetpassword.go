package main

import "context"

func (cli *commandLine) resetPassword(ctx context.Context, uname, pwd string) error {
	_, err := cli.usrSvc.SetPassword(ctx, uname, pwd)
	return err
}
