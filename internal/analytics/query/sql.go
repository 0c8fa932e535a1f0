package query

// Every statement takes the order_events table as %[1]s and the dimension
// predicate from Filter as %[2]s. @start and @end bound the window.

const dailySQL = `
SELECT
  FORMAT_DATE('%%F', DATE(occurred_at)) AS day,
  COUNT(DISTINCT IF(event_type = 'order_created', order_id, NULL)) AS orders,
  COUNT(DISTINCT IF(event_type = 'order_expired', order_id, NULL)) AS expired,
  SUM(IF(event_type = 'order_paid', COALESCE(amount_paid_paise, total_price), 0)) AS revenue,
  SUM(IF(event_type = 'order_paid', COALESCE(commission_fee, 0), 0)) AS commission
FROM %[1]s
WHERE %[2]s
  AND occurred_at BETWEEN @start AND @end
GROUP BY day
ORDER BY day`

const topShopsSQL = `
SELECT stationary_id AS label, SUM(COALESCE(amount_paid_paise, total_price)) AS value
FROM %[1]s
WHERE %[2]s
  AND event_type = 'order_paid'
  AND occurred_at BETWEEN @start AND @end
GROUP BY stationary_id
ORDER BY value DESC
LIMIT @top`

// customersSQL splits paying customers in the window by whether they paid
// for anything before it.
const customersSQL = `
WITH paid AS (
  SELECT user_id, order_id, COALESCE(amount_paid_paise, total_price) AS amount, occurred_at
  FROM %[1]s
  WHERE %[2]s
    AND event_type = 'order_paid'
    AND occurred_at <= @end
),
earlier AS (
  SELECT DISTINCT user_id FROM paid WHERE occurred_at < @start
)
SELECT
  SAFE_DIVIDE(SUM(p.amount), COUNT(DISTINCT p.order_id)) AS aov,
  COUNT(DISTINCT IF(e.user_id IS NULL, p.user_id, NULL)) AS new_customers,
  COUNT(DISTINCT IF(e.user_id IS NULL, NULL, p.user_id)) AS returning_customers
FROM paid p
LEFT JOIN earlier e ON e.user_id = p.user_id
WHERE p.occurred_at >= @start`
