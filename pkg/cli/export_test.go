package cli

var WriteHistory = writeHistory
