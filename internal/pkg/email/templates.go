package email

const reportReadyTemplate = `
<!DOCTYPE html>
<html>
<head>
    <meta charset="utf-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #333; margin: 0; padding: 0; background-color: #f5f5f5; }
        .container { max-width: 600px; margin: 0 auto; background: #ffffff; }
        .header { background: #0F766E; padding: 30px; text-align: center; }
        .header h1 { color: #ffffff; margin: 0; font-size: 22px; }
        .content { padding: 32px 30px; }
        table.totals { width: 100%; border-collapse: collapse; margin: 20px 0; }
        table.totals td { padding: 8px 0; border-bottom: 1px solid #eee; }
        table.totals td.amount { text-align: right; font-family: monospace; }
        .footer { padding: 24px; text-align: center; color: #666; font-size: 13px; background: #f9f9f9; }
    </style>
</head>
<body>
    <div class="container">
        <div class="header"><h1>{{if .Title}}{{.Title}}{{else}}Your report{{end}}</h1></div>
        <div class="content">
            <p>Hello {{.Name}},</p>
            <p>Your scheduled report{{if .Period}} for <strong>{{.Period}}</strong>{{end}} is attached to this email.</p>
            {{if .Title}}
            <table class="totals">
                <tr><td>Income</td><td class="amount">{{money .Income}}</td></tr>
                <tr><td>Expenses</td><td class="amount">{{money .Expense}}</td></tr>
                <tr><td><strong>Net</strong></td><td class="amount"><strong>{{money .Net}}</strong></td></tr>
            </table>
            {{end}}
            <p>You can change the delivery schedule or pause it at any time from your report settings.</p>
        </div>
        <div class="footer">Sent by {{.AppName}}</div>
    </div>
</body>
</html>
`
